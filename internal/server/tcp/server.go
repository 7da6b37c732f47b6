package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"cipherchat/internal/logging"
	"cipherchat/internal/server/hub"
)

// Server accepts chat connections and spawns one Conn actor per client.
type Server struct {
	addr      string
	maxFrame  int
	queueSize int

	handler *Handler
	hub     *hub.Hub
	logger  logging.Logger

	ln    net.Listener
	ready chan struct{}
}

func NewServer(addr string, maxFrame, queueSize int, handler *Handler, h *hub.Hub, logger logging.Logger) *Server {
	return &Server{
		addr:      addr,
		maxFrame:  maxFrame,
		queueSize: queueSize,
		handler:   handler,
		hub:       h,
		logger:    logger.With("module", "tcp"),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the listener is bound; Addr is valid after that.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run listens on the configured address and serves until ctx is cancelled.
// Connections in flight get their own goroutines and wind down with the
// context.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	close(s.ready)

	s.logger.Info(ctx, "chat server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup

	for {
		sock, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn(ctx, "accept error", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newConn(sock, s.handler, s.hub, s.maxFrame, s.queueSize, s.logger)
			c.serve(ctx)
		}()
	}

	wg.Wait()
	s.logger.Info(ctx, "chat server stopped")
	return nil
}
