package Service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonnyShabli/ghsync/config"
	"github.com/JonnyShabli/ghsync/internal/job"
	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/repository"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

var ErrQueueFull = errors.New("too many queued runs")

type ServiceInterface interface {
	Enqueue(ctx context.Context, name string) (models.Run, error)
	GetRun(ctx context.Context, id string) (models.Run, error)
	Jobs() []string
}

// ServiceObj schedules job runs one at a time. Runs are queued by Enqueue
// and executed by the single loop started with Start.
type ServiceObj struct {
	db       repository.StorageInterface
	logger   logster.Logger
	runner   job.RunnerInterface
	jobs     map[string]models.JobConfig
	names    []string
	queue    chan models.Run
	interval time.Duration
}

func NewServiceObj(db repository.StorageInterface, logger logster.Logger, runner job.RunnerInterface, cfg *config.Config) *ServiceObj {
	jobs := make(map[string]models.JobConfig, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs[j.Name] = j
	}
	return &ServiceObj{
		db:       db,
		logger:   logger.WithField("Layer", "Service"),
		runner:   runner,
		jobs:     jobs,
		names:    cfg.JobNames(),
		queue:    make(chan models.Run, cfg.Server.QueueSize),
		interval: cfg.Server.Interval,
	}
}

func (z *ServiceObj) Jobs() []string {
	out := make([]string, len(z.names))
	copy(out, z.names)
	return out
}

func (z *ServiceObj) Enqueue(ctx context.Context, name string) (models.Run, error) {
	if _, ok := z.jobs[name]; !ok {
		return models.Run{}, fmt.Errorf("%w: %s", config.ErrJobNotFound, name)
	}

	run, err := z.db.AddRun(ctx, name)
	if err != nil {
		z.logger.WithError(err).Errorf("AddRun error")
		return models.Run{}, err
	}

	select {
	case z.queue <- run:
		z.logger.Infof("Run %s of job %s queued", run.RunId, name)
		return run, nil
	default:
		run.Status = models.StatusFailed
		run.Error = ErrQueueFull.Error()
		if err := z.db.UpdateRun(ctx, run); err != nil {
			z.logger.WithError(err).Errorf("UpdateRun error")
		}
		return models.Run{}, ErrQueueFull
	}
}

func (z *ServiceObj) GetRun(ctx context.Context, id string) (models.Run, error) {
	run, err := z.db.GetRun(ctx, id)
	if err != nil {
		z.logger.WithError(err).Errorf("GetRun error")
		return models.Run{}, err
	}
	return run, nil
}

// Start executes queued runs until ctx is done. When an interval is
// configured every job is enqueued on each tick.
func (z *ServiceObj) Start(ctx context.Context) error {
	var tick <-chan time.Time
	if z.interval > 0 {
		ticker := time.NewTicker(z.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	z.logger.Infof("Scheduler started with %d jobs", len(z.names))
	for {
		select {
		case <-ctx.Done():
			z.logger.Infof("Scheduler stopped")
			return nil
		case run := <-z.queue:
			z.execute(ctx, run)
		case <-tick:
			for _, name := range z.names {
				if _, err := z.Enqueue(ctx, name); err != nil {
					z.logger.WithError(err).Warnf("Periodic run of %s not queued", name)
				}
			}
		}
	}
}

func (z *ServiceObj) execute(ctx context.Context, run models.Run) {
	logger := z.logger.WithField("run_id", run.RunId)
	// history updates must land even when the run was interrupted
	dbCtx := context.WithoutCancel(ctx)

	run.Status = models.StatusRunning
	if err := z.db.UpdateRun(dbCtx, run); err != nil {
		logger.WithError(err).Errorf("UpdateRun error")
	}

	res, err := z.runner.Run(ctx, z.jobs[run.Job])
	run.Status = res.Status
	run.Writes = res.Writes
	if err != nil {
		run.Status = models.StatusFailed
		run.Error = err.Error()
	}
	if err := z.db.UpdateRun(dbCtx, run); err != nil {
		logger.WithError(err).Errorf("UpdateRun error")
	}
	logger.Infof("Run of job %s finished with status %s", run.Job, run.Status)
}
