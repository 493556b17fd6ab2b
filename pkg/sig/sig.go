package sig

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonnyShabli/ghsync/pkg/logster"
)

var ErrSignalReceived = errors.New("signal received")

// ListenSignal blocks until SIGINT or SIGTERM arrives or ctx is done. On a
// signal it calls cancel and returns ErrSignalReceived.
func ListenSignal(ctx context.Context, logger logster.Logger, cancel context.CancelFunc) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case <-ctx.Done():
		return nil
	case s := <-ch:
		logger.Infof("Got signal %s, shutting down", s)
		cancel()
		return ErrSignalReceived
	}
}
