package metrics

import (
	"context"
	"net/http"
	"time"

	"cipherchat/internal/logging"
)

// Handler serves the text exposition at GET /metrics.
func Handler(c *Collector) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = c.WriteText(w)
	})
	return mux
}

// Serve runs the scrape endpoint until ctx is cancelled. Startup failure is
// returned to the caller; a clean shutdown returns nil.
func Serve(ctx context.Context, addr string, c *Collector, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(c),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting metrics endpoint", "address", addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
