// Package job runs one configured fetch job through the stage pipeline:
// rate limit check, request construction, request execution with response
// reduction and cache checks, write back, cache persistence.
package job

import (
	"context"
	"fmt"

	"github.com/JonnyShabli/ghsync/internal/cache"
	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/pipeline"
	"github.com/JonnyShabli/ghsync/internal/ratelimit"
	"github.com/JonnyShabli/ghsync/internal/reducer"
	"github.com/JonnyShabli/ghsync/internal/request"
	"github.com/JonnyShabli/ghsync/internal/storage"
	"github.com/JonnyShabli/ghsync/pkg/logster"
	"github.com/JonnyShabli/ghsync/pkg/metrics"
)

// Job is the state threaded through every stage of one run. It is created
// per run and never shared.
type Job struct {
	Config   models.JobConfig
	Requests *request.Batch
	Writes   *storage.WriteQueue
	Cache    *cache.Store
	Result   Result
	logger   logster.Logger
}

type Result struct {
	Status       string
	Requests     int
	Writes       int
	UpToDate     int
	CacheUpdated bool
}

type RunnerInterface interface {
	Run(ctx context.Context, cfg models.JobConfig) (Result, error)
}

type Runner struct {
	transport request.Transport
	storage   storage.StorageInterface
	guard     *ratelimit.Guard
	reducer   *reducer.Reducer
	hasher    *cache.Hasher
	cachePath string
	logger    logster.Logger
	metrics   *metrics.Metrics
}

func NewRunner(transport request.Transport, store storage.StorageInterface, cachePath string, logger logster.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		transport: transport,
		storage:   store,
		guard:     ratelimit.NewGuard(transport, logger, m),
		reducer:   reducer.New(logger),
		hasher:    cache.NewHasher(),
		cachePath: cachePath,
		logger:    logger.WithField("Layer", "Job"),
		metrics:   m,
	}
}

// Run executes cfg to completion. A run skipped for lack of API budget is a
// success with status Skipped; only transport and storage failures are
// returned as errors.
func (r *Runner) Run(ctx context.Context, cfg models.JobConfig) (Result, error) {
	logger := r.logger.WithField("job", cfg.Name)

	store, err := cache.Load(r.cachePath)
	if err != nil {
		r.metrics.JobFinished(models.StatusFailed)
		return Result{Status: models.StatusFailed}, err
	}

	j := &Job{
		Config:   cfg,
		Requests: request.NewBatch(r.transport, logger),
		Writes:   storage.NewWriteQueue(r.storage, logger),
		Cache:    store,
		Result:   Result{Status: models.StatusSuccess},
		logger:   logger,
	}

	var result Result
	runErr := pipeline.Init(j, logger).
		Step("rate-limit", r.checkLimits).
		Step("build-requests", r.buildRequests).
		Step("process-responses", r.processResponses).
		Step("write-responses", r.writeResponses).
		Step("update-cache", r.updateCache).
		Execute(ctx, func(err error, j *Job) {
			if err != nil {
				logger.WithError(err).Errorf("job failed")
				result = Result{Status: models.StatusFailed}
				return
			}
			result = j.Result
		})

	r.metrics.JobFinished(result.Status)
	if runErr != nil {
		return result, fmt.Errorf("job %s: %w", cfg.Name, runErr)
	}
	logger.Infof("job finished: status=%s writes=%d up-to-date=%d", result.Status, result.Writes, result.UpToDate)
	return result, nil
}
