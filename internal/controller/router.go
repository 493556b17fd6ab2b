package controller

import (
	"github.com/go-chi/chi/v5"

	pkghttp "github.com/JonnyShabli/ghsync/pkg/http"
)

func WithApiHandler(api HandlerInterface) pkghttp.RouterOption {
	return func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Get("/jobs", api.ListJobs)
			r.Post("/jobs/{name}/run", api.AddRun)
			r.Get("/runs/{run_id}", api.GetStatus)
		})
	}
}
