// Package cli implements the interactive chat client: a line-oriented REPL
// on stdin and a background reader that prints decrypted incoming frames.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"cipherchat/internal/client/config"
	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
	"cipherchat/internal/filex"
	"cipherchat/internal/protocol"
)

type App struct {
	config *config.Config
	crypto *cryptox.Service

	conn net.Conn
	out  io.Writer
}

func NewApp(cfg *config.Config) (*App, error) {
	crypto, err := cryptox.NewServiceFromBase64(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}
	return &App{config: cfg, crypto: crypto, out: os.Stdout}, nil
}

// Run connects, authenticates and enters the REPL. It returns when the user
// quits, the server drops the connection or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	conn, err := net.Dial("tcp", a.config.ServerAddr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", a.config.ServerAddr, err)
	}
	a.conn = conn
	defer conn.Close()

	reader := bufio.NewReader(os.Stdin)

	if err := a.login(reader); err != nil {
		return err
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		a.receiveLoop()
	}()

	if err := a.repl(ctx, reader, readerDone); err != nil {
		return err
	}

	return nil
}

func (a *App) login(reader *bufio.Reader) error {
	username := a.config.Username
	if username == "" {
		var err error
		username, err = GetSimpleText(reader, "Enter username", a.out)
		if err != nil {
			return err
		}
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := protocol.WriteFrame(a.conn, protocol.Login{Username: username, Password: string(password)}); err != nil {
		return fmt.Errorf("send login: %w", err)
	}

	reply, err := protocol.ReadFrame(a.conn, protocol.DefaultMaxPayload)
	if err != nil {
		return fmt.Errorf("read login reply: %w", err)
	}

	switch fr := reply.(type) {
	case protocol.System:
		fmt.Fprintln(a.out, fr.Note)
		return nil
	case protocol.Error:
		return fmt.Errorf("login rejected: %s", fr.Reason)
	default:
		return fmt.Errorf("unexpected login reply: %s", reply.FrameType())
	}
}

// receiveLoop prints incoming frames until the connection closes.
func (a *App) receiveLoop() {
	for {
		f, err := protocol.ReadFrame(a.conn, protocol.DefaultMaxPayload)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				fmt.Fprintf(a.out, "connection lost: %v\n", err)
			}
			return
		}

		switch fr := f.(type) {
		case protocol.Text:
			plain, err := a.crypto.DecryptString(fr.Body)
			if err != nil {
				fmt.Fprintln(a.out, "[undecryptable message]")
				continue
			}
			fmt.Fprintf(a.out, "%s\n", plain)
		case protocol.System:
			fmt.Fprintf(a.out, "* %s\n", fr.Note)
		case protocol.Error:
			fmt.Fprintf(a.out, "! %s: %s\n", fr.Code, fr.Reason)
		case protocol.File:
			a.saveAttachment("files", fr.Name, fr.Data)
		case protocol.Image:
			a.saveAttachment("images", fr.Name, fr.Data)
		}
	}
}

// saveAttachment decrypts an incoming blob and writes it under the
// download directory.
func (a *App) saveAttachment(kind, name string, data []byte) {
	plain, err := a.crypto.Decrypt(data)
	if err != nil {
		fmt.Fprintf(a.out, "! could not decrypt incoming %s %q\n", kind, name)
		return
	}

	dir, err := filex.EnsureSubDir(a.config.DownloadDir, kind)
	if err != nil {
		fmt.Fprintf(a.out, "! %v\n", err)
		return
	}

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, plain, 0o660); err != nil {
		fmt.Fprintf(a.out, "! save %q: %v\n", name, err)
		return
	}
	fmt.Fprintf(a.out, "* saved %s\n", path)
}

// repl reads user commands until quit or disconnect.
//
// Commands:
//
//	.file <path>    send a file
//	.image <path>   send an image
//	.quit           leave the chat
//
// Any other input is sent as an encrypted text message.
func (a *App) repl(ctx context.Context, reader *bufio.Reader, readerDone chan struct{}) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(line)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			a.sendQuit()
			return nil
		case <-readerDone:
			return errors.New("disconnected from server")
		case line, ok := <-lines:
			if !ok {
				a.sendQuit()
				return nil
			}
			if line == "" {
				continue
			}
			if done, err := a.dispatch(line); done || err != nil {
				return err
			}
		}
	}
}

func (a *App) dispatch(line string) (done bool, err error) {
	switch {
	case line == ".quit":
		a.sendQuit()
		return true, nil
	case strings.HasPrefix(line, ".file "):
		return false, a.sendAttachment(strings.TrimSpace(strings.TrimPrefix(line, ".file ")), false)
	case strings.HasPrefix(line, ".image "):
		return false, a.sendAttachment(strings.TrimSpace(strings.TrimPrefix(line, ".image ")), true)
	default:
		body := a.crypto.EncryptString(line)
		return false, protocol.WriteFrame(a.conn, protocol.Text{Body: body})
	}
}

func (a *App) sendAttachment(path string, asImage bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.out, "! read %q: %v\n", path, err)
		return nil
	}

	encrypted := a.crypto.Encrypt(data)
	name := filepath.Base(path)

	var f protocol.Frame
	if asImage {
		f = protocol.Image{Name: name, Data: encrypted}
	} else {
		f = protocol.File{Name: name, Data: encrypted}
	}
	return protocol.WriteFrame(a.conn, f)
}

func (a *App) sendQuit() {
	_ = protocol.WriteFrame(a.conn, protocol.Quit{})
}
