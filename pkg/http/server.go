package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonnyShabli/ghsync/pkg/logster"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// NewHandler builds a chi router mounted at basePath with the given options
// applied in order.
func NewHandler(basePath string, opts ...RouterOption) http.Handler {
	root := chi.NewRouter()
	root.Route(basePath, func(r chi.Router) {
		for _, opt := range opts {
			opt(r)
		}
	})
	return root
}

// RunServer serves handler on addr until ctx is done, then shuts down
// gracefully.
func RunServer(ctx context.Context, addr string, logger logster.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          log.New(logger, "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Api server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Infof("Api server shutting down")
	return srv.Shutdown(shutdownCtx)
}
