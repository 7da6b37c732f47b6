// Command userctl manages chat accounts: it creates and deletes users
// directly against the server database.
//
// Usage:
//
//	userctl create
//	userctl delete
//
// Both commands prompt for the details they need. The database DSN comes
// from the same configuration sources as the server (defaults, JSON file,
// CHAT_* environment, flags).
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"cipherchat/internal/client/cli"
	"cipherchat/internal/common"
	"cipherchat/internal/dbx"
	"cipherchat/internal/server/config"
	"cipherchat/internal/server/messages"
	"cipherchat/internal/server/shared/db"
	"cipherchat/internal/server/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		return errors.New("usage: userctl <create|delete> -username <name>")
	}
	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	cfg := config.LoadConfig()
	ctx := context.Background()

	repos, err := db.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer repos.Close()

	service := users.NewService(repos.Users(), repos.Sessions(), cfg.JWTSecret, cfg.TokenValidity)

	reader := bufio.NewReader(os.Stdin)

	switch command {
	case "create":
		return createUser(ctx, service, reader)
	case "delete":
		return deleteUser(ctx, repos, reader)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func createUser(ctx context.Context, service *users.Service, reader *bufio.Reader) error {
	username, err := cli.GetSimpleText(reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	email, err := cli.GetSimpleText(reader, "Enter email (optional)", os.Stdout)
	if err != nil {
		return err
	}

	password, err := cli.GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := service.Register(ctx, username, email, string(password))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func deleteUser(ctx context.Context, repos db.RepositoryManager, reader *bufio.Reader) error {
	username, err := cli.GetSimpleText(reader, "Enter username to delete", os.Stdout)
	if err != nil {
		return err
	}

	user, err := repos.Users().GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	// Purge the account's history and the account itself atomically; a
	// half-deleted user must never be observable.
	var purged int64
	err = dbx.WithTx(ctx, repos.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := messages.NewPostgresRepository(tx).DeleteBySender(ctx, user.ID)
		if err != nil {
			return err
		}
		purged = n
		return users.NewPostgresRepository(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	fmt.Printf("deleted user %s (id %d), purged %d messages\n", user.Username, user.ID, purged)
	return nil
}
