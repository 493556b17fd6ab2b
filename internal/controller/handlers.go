package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonnyShabli/ghsync/config"
	"github.com/JonnyShabli/ghsync/internal/Service"
	"github.com/JonnyShabli/ghsync/internal/repository"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

type HandlerInterface interface {
	AddRun(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
	ListJobs(w http.ResponseWriter, r *http.Request)
}

type HandlerObj struct {
	Service Service.ServiceInterface
	Logger  logster.Logger
}

func NewHandlers(service Service.ServiceInterface, logger logster.Logger) *HandlerObj {
	return &HandlerObj{
		Service: service,
		Logger:  logger.WithField("Layer", "Handlers"),
	}
}

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessDataResponse(w http.ResponseWriter, logger logster.Logger, msg string, data interface{}) {
	writeJSON(w, logger, http.StatusOK, Response{Message: msg, Data: data})
}

func ErrorResponse(w http.ResponseWriter, logger logster.Logger, status int, err error) {
	writeJSON(w, logger, status, Response{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, logger logster.Logger, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Errorf("fail to write response")
	}
}

func (h *HandlerObj) AddRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	run, err := h.Service.Enqueue(ctx, name)
	switch {
	case errors.Is(err, config.ErrJobNotFound):
		h.Logger.WithError(err).Infof("unknown job")
		ErrorResponse(w, h.Logger, http.StatusNotFound, err)
		return
	case errors.Is(err, Service.ErrQueueFull):
		h.Logger.WithError(err).Warnf("run rejected")
		ErrorResponse(w, h.Logger, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.Logger.WithError(err).Errorf("Add run failed")
		ErrorResponse(w, h.Logger, http.StatusInternalServerError, err)
		return
	}
	h.Logger.Infof("Add run successfully with Id: %s", run.RunId)
	SuccessDataResponse(w, h.Logger, "Success", run)
}

func (h *HandlerObj) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runId := chi.URLParam(r, "run_id")
	if runId == "" {
		h.Logger.Infof("fail to get run_id from url params")
		http.Error(w, "fail to get run_id", http.StatusBadRequest)
		return
	}

	run, err := h.Service.GetRun(ctx, runId)
	if errors.Is(err, repository.ErrRunNotFound) {
		ErrorResponse(w, h.Logger, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.Logger.WithError(err).Errorf("fail to get run status")
		ErrorResponse(w, h.Logger, http.StatusInternalServerError, err)
		return
	}
	SuccessDataResponse(w, h.Logger, "Success", run)
}

func (h *HandlerObj) ListJobs(w http.ResponseWriter, _ *http.Request) {
	SuccessDataResponse(w, h.Logger, "Success", h.Service.Jobs())
}
