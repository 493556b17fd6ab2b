package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonnyShabli/ghsync/pkg/logster"
)

func DefaultTechOptions() RouterOption {
	return RouterOptions(
		WithRecover(),
		WithDebugHandler(),
	)
}

func RouterOptions(options ...RouterOption) func(chi.Router) {
	return func(r chi.Router) {
		for _, option := range options {
			option(r)
		}
	}
}

type RouterOption func(chi.Router)

func WithDebugHandler() RouterOption {
	return func(r chi.Router) {
		r.Mount("/debug", middleware.Profiler())
	}
}

func WithRecover() RouterOption {
	return func(r chi.Router) {
		r.Use(middleware.Recoverer)
	}
}

func WithLogger(loger logster.Logger) RouterOption {
	return func(r chi.Router) {
		r.Use(logster.LogsterMiddleware(loger))
	}
}

// WithMetrics exposes gatherer at /metrics.
func WithMetrics(gatherer prometheus.Gatherer) RouterOption {
	return func(r chi.Router) {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}
