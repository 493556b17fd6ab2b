package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonnyShabli/ghsync/config"
	"github.com/JonnyShabli/ghsync/internal/Service"
	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/repository"
	pkghttp "github.com/JonnyShabli/ghsync/pkg/http"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

type fakeService struct {
	runs map[string]models.Run
	full bool
}

func (f *fakeService) Enqueue(_ context.Context, name string) (models.Run, error) {
	if name != "repo" {
		return models.Run{}, config.ErrJobNotFound
	}
	if f.full {
		return models.Run{}, Service.ErrQueueFull
	}
	run := models.Run{RunId: "r1", Job: name, Status: models.StatusQueued}
	f.runs[run.RunId] = run
	return run, nil
}

func (f *fakeService) GetRun(_ context.Context, id string) (models.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return models.Run{}, repository.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeService) Jobs() []string {
	return []string{"repo"}
}

func newServer(t *testing.T, svc Service.ServiceInterface) *httptest.Server {
	t.Helper()
	logger := logster.NewNop()
	handler := pkghttp.NewHandler("/", pkghttp.WithLogger(logger), WithApiHandler(NewHandlers(svc, logger)))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, data interface{}) Response {
	t.Helper()
	defer resp.Body.Close()
	body := Response{Data: data}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	svc := &fakeService{runs: map[string]models.Run{}}
	srv := newServer(t, svc)

	resp, err := http.Post(srv.URL+"/api/jobs/repo/run", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var run models.Run
	decode(t, resp, &run)
	assert.Equal(t, "r1", run.RunId)

	resp, err = http.Get(srv.URL + "/api/runs/r1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Run
	decode(t, resp, &got)
	assert.Equal(t, models.StatusQueued, got.Status)

	resp, err = http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	var names []string
	decode(t, resp, &names)
	assert.Equal(t, []string{"repo"}, names)
}

func TestHandlers_Errors(t *testing.T) {
	t.Parallel()

	svc := &fakeService{runs: map[string]models.Run{}}
	srv := newServer(t, svc)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown job", method: http.MethodPost, path: "/api/jobs/nope/run", want: http.StatusNotFound},
		{name: "unknown run", method: http.MethodGet, path: "/api/runs/nope", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/api/jobs/repo/run", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.name)
	}
}

func TestHandlers_QueueFull(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeService{runs: map[string]models.Run{}, full: true})

	resp, err := http.Post(srv.URL+"/api/jobs/repo/run", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
