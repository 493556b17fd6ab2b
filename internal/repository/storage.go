package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

var ErrRunNotFound = errors.New("run not found")

type StorageInterface interface {
	AddRun(ctx context.Context, job string) (models.Run, error)
	GetRun(ctx context.Context, id string) (models.Run, error)
	UpdateRun(ctx context.Context, run models.Run) error
}

// Storage keeps run history in memory for the lifetime of the process.
type Storage struct {
	mu     sync.Mutex
	db     sync.Map
	logger logster.Logger
}

func NewStorage(logger logster.Logger) *Storage {
	return &Storage{
		db:     sync.Map{},
		logger: logger.WithField("Layer", "Repository"),
	}
}

func (s *Storage) AddRun(ctx context.Context, job string) (models.Run, error) {
	select {
	default:
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).Errorf("AddRun: context expire")
		return models.Run{}, ctx.Err()
	}

	run := models.Run{
		RunId:  uuid.New().String(),
		Job:    job,
		Status: models.StatusQueued,
	}
	s.db.Store(run.RunId, run)

	s.logger.Infof("AddRun: run added with Id: %v", run.RunId)
	return run, nil
}

func (s *Storage) GetRun(ctx context.Context, id string) (models.Run, error) {
	select {
	default:
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).Errorf("GetRun: context expire")
		return models.Run{}, ctx.Err()
	}

	v, ok := s.db.Load(id)
	if !ok {
		return models.Run{}, ErrRunNotFound
	}
	return v.(models.Run), nil
}

// UpdateRun replaces a known run. Unknown ids are rejected.
func (s *Storage) UpdateRun(ctx context.Context, run models.Run) error {
	select {
	default:
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).Errorf("UpdateRun: context expire")
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.db.Load(run.RunId); !ok {
		s.logger.WithError(ErrRunNotFound).Errorf("UpdateRun: %s", run.RunId)
		return ErrRunNotFound
	}
	s.db.Store(run.RunId, run)
	return nil
}
