// Package db wires the Postgres connection to the repositories that live on
// top of it.
package db

import (
	"context"
	"database/sql"

	"cipherchat/internal/server/messages"
	"cipherchat/internal/server/sessions"
	"cipherchat/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Messages() messages.Repository
	Sessions() sessions.Repository
	Close() error
}
