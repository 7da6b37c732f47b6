// Package server initializes and runs the chat server application.
// It wires the database, crypto, hub and metrics together, and handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cipherchat/internal/cryptox"
	"cipherchat/internal/logging"
	"cipherchat/internal/server/blob"
	"cipherchat/internal/server/config"
	"cipherchat/internal/server/hub"
	"cipherchat/internal/server/messages"
	"cipherchat/internal/server/metrics"
	"cipherchat/internal/server/shared/db"
	"cipherchat/internal/server/tcp"
	"cipherchat/internal/server/users"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     db.RepositoryManager
	collector *metrics.Collector
	hub       *hub.Hub
	server    *tcp.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	repos, err := db.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	crypto, err := cryptox.NewServiceFromBase64(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}

	blobs, err := blob.NewStore(c.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("blob store error: %w", err)
	}

	us := users.NewService(repos.Users(), repos.Sessions(), c.JWTSecret, c.TokenValidity)
	ms := messages.NewService(repos.Messages())

	collector := metrics.NewCollector()
	h := hub.New(logger, collector)

	handler := tcp.NewHandler(us, ms, blobs, h, crypto, collector, logger)
	srv := tcp.NewServer(c.BindAddr, c.MaxFrameSize, c.OutboundQueueSize, handler, h, logger)

	return &App{
		config:    c,
		logger:    logger,
		repos:     repos,
		collector: collector,
		hub:       h,
		server:    srv,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startChatServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.collector, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startChatServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
