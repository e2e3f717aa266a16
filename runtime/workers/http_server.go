package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPServerWorker serves the public API until the context is cancelled,
// then drains in-flight requests for at most shutdownTimeout.
type HTTPServerWorker struct {
	server          *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func NewHTTPServerWorker(addr string, handler http.Handler, shutdownTimeout time.Duration, log *slog.Logger) *HTTPServerWorker {
	return &HTTPServerWorker{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		w.log.Info("HTTP server listening", "addr", w.server.Addr)
		errCh <- w.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		w.log.Warn("HTTP server stopped with error", "error", err)
	}
	w.log.Info("HTTP server stopped")
	return nil
}
