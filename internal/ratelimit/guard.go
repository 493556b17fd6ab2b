// Package ratelimit decides whether a job fits in the remaining anonymous
// API budget.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/request"
	"github.com/JonnyShabli/ghsync/pkg/logster"
	"github.com/JonnyShabli/ghsync/pkg/metrics"
)

const (
	statusPath  = "rate_limit"
	resetLayout = "3:04:05 PM"
)

type Decision int

const (
	Proceed Decision = iota
	Warn
	Skip
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Warn:
		return "warn"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Rate is the core resource budget reported by GET /rate_limit.
type Rate struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

func (r Rate) ResetTime() time.Time {
	return time.Unix(r.Reset, 0)
}

type Guard struct {
	transport request.Transport
	logger    logster.Logger
	metrics   *metrics.Metrics
}

func NewGuard(transport request.Transport, logger logster.Logger, m *metrics.Metrics) *Guard {
	return &Guard{
		transport: transport,
		logger:    logger.WithField("Layer", "RateLimit"),
		metrics:   m,
	}
}

// Check returns Proceed without any request for authenticated jobs. Otherwise
// it asks for the current budget once and compares it with the number of
// requests the job needs.
func (g *Guard) Check(ctx context.Context, cfg models.JobConfig) (Decision, error) {
	if cfg.Auth.Authenticated {
		return Proceed, nil
	}

	rate, err := g.fetch(ctx, cfg)
	if err != nil {
		return Skip, err
	}
	g.metrics.SetRateLimitRemaining(rate.Remaining)

	decision := Decide(rate, len(cfg.Src), cfg.RateLimit.Warning)
	switch decision {
	case Skip:
		g.logger.Infof("You do not have enough public API requests remaining to complete this task (%d needed, %d remaining). Skipping this task.",
			len(cfg.Src), rate.Remaining)
	case Warn:
		g.logger.Warnf("You are about to hit your public API request limit (%d remaining). Add an access token if possible. Public API limit resets at: %s",
			rate.Remaining, rate.ResetTime().Format(resetLayout))
	}
	return decision, nil
}

// Decide applies the budget rules. Exhaustion, including a budget of zero,
// always wins over the warning threshold.
func Decide(rate Rate, needed, warning int) Decision {
	switch {
	case rate.Remaining < needed:
		return Skip
	case rate.Remaining <= warning:
		return Warn
	default:
		return Proceed
	}
}

func (g *Guard) fetch(ctx context.Context, cfg models.JobConfig) (Rate, error) {
	responses, err := g.transport.Send(ctx, []models.PendingRequest{{
		Connection: cfg.Connection,
		Src:        statusPath,
		Task:       cfg.Task,
	}})
	if err != nil {
		return Rate{}, fmt.Errorf("rate limit status: %w", err)
	}
	if len(responses) == 0 || len(responses[0].Pages) == 0 {
		return Rate{}, fmt.Errorf("rate limit status: empty response")
	}

	var status struct {
		Rate *Rate `json:"rate"`
	}
	if err := json.Unmarshal(responses[0].Pages[0].Data, &status); err != nil {
		return Rate{}, fmt.Errorf("rate limit status: %w", err)
	}
	if status.Rate == nil {
		return Rate{}, fmt.Errorf("rate limit status: missing rate")
	}
	return *status.Rate, nil
}
