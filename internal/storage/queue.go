// Package storage holds the pending writes of a job and persists them.
package storage

import (
	"context"
	"encoding/json"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

type StorageInterface interface {
	Write(item models.WriteItem) (string, error)
	WriteData(data []byte, location string) error
}

// WriteQueue collects the writes of one run and flushes them in the order
// they were added.
type WriteQueue struct {
	items   []models.WriteItem
	storage StorageInterface
	logger  logster.Logger
}

func NewWriteQueue(storage StorageInterface, logger logster.Logger) *WriteQueue {
	return &WriteQueue{
		storage: storage,
		logger:  logger.WithField("Layer", "WriteQueue"),
	}
}

func (q *WriteQueue) Add(payload json.RawMessage, dest string, kind models.Kind) {
	q.items = append(q.items, models.WriteItem{
		Payload: payload,
		Dest:    dest,
		Kind:    kind,
	})
}

func (q *WriteQueue) Len() int {
	return len(q.items)
}

// Items returns a copy of the pending writes.
func (q *WriteQueue) Items() []models.WriteItem {
	out := make([]models.WriteItem, len(q.items))
	copy(out, q.items)
	return out
}

// Flush writes every pending item and empties the queue. Items are removed as
// soon as they are written, so after a failure only the unwritten tail stays
// queued. Flushing an empty queue is a no-op.
func (q *WriteQueue) Flush(ctx context.Context) (int, error) {
	written := 0
	for len(q.items) > 0 {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		item := q.items[0]
		path, err := q.storage.Write(item)
		if err != nil {
			q.logger.WithError(err).Errorf("write %s failed", item.Dest)
			return written, err
		}
		q.items = q.items[1:]
		written++
		q.logger.Infof("Wrote %s", path)
	}
	q.items = nil
	return written, nil
}
