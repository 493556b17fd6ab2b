package job

import (
	"context"

	"github.com/JonnyShabli/ghsync/internal/cache"
	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/pipeline"
	"github.com/JonnyShabli/ghsync/internal/ratelimit"
)

// checkLimits reads Config.Auth, Config.Src, Config.RateLimit.
// Writes Result.Status when the run is skipped.
func (r *Runner) checkLimits(ctx context.Context, j *Job) (*Job, pipeline.Outcome, error) {
	decision, err := r.guard.Check(ctx, j.Config)
	if err != nil {
		return j, pipeline.Continue, err
	}
	if decision == ratelimit.Skip {
		j.Result.Status = models.StatusSkipped
		return j, pipeline.Halt, nil
	}
	return j, pipeline.Continue, nil
}

// buildRequests reads Config. Writes Requests.
func (r *Runner) buildRequests(_ context.Context, j *Job) (*Job, pipeline.Outcome, error) {
	j.Result.Requests = j.Requests.Build(j.Config)
	return j, pipeline.Continue, nil
}

// processResponses consumes Requests. Reads and updates Cache, writes Writes.
func (r *Runner) processResponses(ctx context.Context, j *Job) (*Job, pipeline.Outcome, error) {
	responses, err := j.Requests.Send(ctx)
	if err != nil {
		return j, pipeline.Continue, err
	}

	for _, resp := range responses {
		payload, ok, err := r.reducer.Reduce(resp)
		if err != nil {
			return j, pipeline.Continue, err
		}
		if !ok {
			continue
		}

		if resp.Task.Cache {
			id, err := r.hasher.ID(resp.Task.Type, payload)
			if err != nil {
				return j, pipeline.Continue, err
			}
			key := cache.Key(resp.Dest)
			changed := j.Cache.Check(resp.Task.CacheKey(), key, resp.Task.Type, id)
			r.metrics.CacheLookup(!changed)
			if !changed {
				j.logger.Infof("%s is already up-to-date. (No data has been written)", key)
				j.Result.UpToDate++
				continue
			}
		}

		j.Writes.Add(payload, resp.Dest, resp.Task.Type)
	}
	return j, pipeline.Continue, nil
}

// writeResponses flushes Writes.
func (r *Runner) writeResponses(ctx context.Context, j *Job) (*Job, pipeline.Outcome, error) {
	n, err := j.Writes.Flush(ctx)
	j.Result.Writes += n
	r.metrics.AddWrites(n)
	if err != nil {
		return j, pipeline.Continue, err
	}
	return j, pipeline.Continue, nil
}

// updateCache persists Cache when dirty. Must run after writeResponses so a
// cache entry never refers to a payload that failed to write.
func (r *Runner) updateCache(_ context.Context, j *Job) (*Job, pipeline.Outcome, error) {
	if !j.Cache.Dirty() {
		return j, pipeline.Continue, nil
	}

	data, err := j.Cache.Dump()
	if err != nil {
		return j, pipeline.Continue, err
	}
	if err := r.storage.WriteData(data, j.Cache.Location()); err != nil {
		return j, pipeline.Continue, err
	}
	j.Cache.Saved()
	j.Result.CacheUpdated = true
	j.logger.Infof("Updated Cache!")
	return j, pipeline.Continue, nil
}
