// Package request turns a job's sources into pending fetches and hands them
// to the transport as one batch.
package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

// Transport executes a batch of pending requests and returns one response per
// destination, in the order the destinations first appear in the batch.
// Requests with an empty destination each get their own response.
type Transport interface {
	Send(ctx context.Context, reqs []models.PendingRequest) ([]models.Response, error)
}

type Batch struct {
	pending   []models.PendingRequest
	transport Transport
	logger    logster.Logger
}

func NewBatch(transport Transport, logger logster.Logger) *Batch {
	return &Batch{
		transport: transport,
		logger:    logger.WithField("Layer", "Request"),
	}
}

func (b *Batch) Add(conn models.Connection, src, dest string, task models.Task) {
	b.pending = append(b.pending, models.PendingRequest{
		Connection: conn,
		Src:        src,
		Dest:       dest,
		Task:       task,
	})
}

func (b *Batch) Len() int {
	return len(b.pending)
}

// Pending returns a copy of the queued requests.
func (b *Batch) Pending() []models.PendingRequest {
	out := make([]models.PendingRequest, len(b.pending))
	copy(out, b.pending)
	return out
}

// Build enqueues one request per configured source, front to back. It
// returns the number of requests added.
func (b *Batch) Build(cfg models.JobConfig) int {
	for _, src := range cfg.Src {
		s, dest := Resolve(cfg, src)
		b.Add(cfg.Connection, s, dest, cfg.Task)
		b.logger.Debugf("queued %s -> %s", stripQuery(s), dest)
	}
	return len(cfg.Src)
}

// Send executes every pending request and clears the batch. The batch is
// cleared even on failure; nothing is retried here.
func (b *Batch) Send(ctx context.Context) ([]models.Response, error) {
	reqs := b.pending
	b.pending = nil
	if len(reqs) == 0 {
		return nil, nil
	}

	responses, err := b.transport.Send(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("send %d requests: %w", len(reqs), err)
	}
	return responses, nil
}

// Resolve computes the request path and destination for one source.
func Resolve(cfg models.JobConfig, src string) (string, string) {
	s := CleanPath(src)

	var dest string
	if cfg.Dest != "" {
		dest = CleanPath(cfg.Dest)
	} else {
		dest = stripQuery(s)
	}
	if cfg.Output != "" {
		dest = strings.TrimRight(cfg.Output, "/") + "/" + dest
	}

	if len(cfg.Filters) > 0 || cfg.Auth.Token != "" {
		sep := "?"
		if strings.Contains(s, "?") {
			sep = "&"
		}
		s += sep + QueryString(cfg.Filters, cfg.Auth.Token)
	}

	return s, dest
}
