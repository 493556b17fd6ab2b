package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/internal/storage"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

// fakeAPI answers requests from an in-memory map keyed by source path.
type fakeAPI struct {
	remaining int
	data      map[string][]string // src -> pages
	calls     []string
	fail      error
}

func (f *fakeAPI) Send(_ context.Context, reqs []models.PendingRequest) ([]models.Response, error) {
	var out []models.Response
	index := map[string]int{}
	for _, r := range reqs {
		src := r.Src
		if i := strings.IndexByte(src, '?'); i >= 0 {
			src = src[:i]
		}
		f.calls = append(f.calls, src)

		if src == "rate_limit" {
			body := fmt.Sprintf(`{"rate":{"limit":60,"remaining":%d,"reset":0}}`, f.remaining)
			out = append(out, models.Response{Pages: []models.Page{{Key: src, Data: json.RawMessage(body)}}, Task: r.Task})
			continue
		}
		if f.fail != nil {
			return nil, f.fail
		}

		var pages []models.Page
		for n, p := range f.data[src] {
			key := src
			if n > 0 {
				key = fmt.Sprintf("%s?page=%d", src, n+1)
			}
			pages = append(pages, models.Page{Key: key, Data: json.RawMessage(p)})
		}
		if at, ok := index[r.Dest]; ok {
			out[at].Pages = append(out[at].Pages, pages...)
			continue
		}
		index[r.Dest] = len(out)
		out = append(out, models.Response{Dest: r.Dest, Pages: pages, Task: r.Task})
	}
	return out, nil
}

func (f *fakeAPI) count(src string) int {
	n := 0
	for _, c := range f.calls {
		if c == src {
			n++
		}
	}
	return n
}

type failingStorage struct {
	storage.StorageInterface
}

func (failingStorage) Write(item models.WriteItem) (string, error) {
	return "", errors.New("disk full")
}

type fixture struct {
	dir       string
	cachePath string
	api       *fakeAPI
	runner    *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	api := &fakeAPI{
		remaining: 60,
		data: map[string][]string{
			"users/a": {`{"login":"a","avatar_url":"https://0.gravatar.com/avatar/x"}`},
			"users/b": {`{"login":"b"}`},
		},
	}
	cachePath := filepath.Join(dir, "cache.json")
	return &fixture{
		dir:       dir,
		cachePath: cachePath,
		api:       api,
		runner:    NewRunner(api, storage.NewWriter(logster.NewNop()), cachePath, logster.NewNop(), nil),
	}
}

func (f *fixture) config() models.JobConfig {
	return models.JobConfig{
		Name:      "repo",
		Src:       models.Sources{"users/a", "users/b"},
		Output:    filepath.Join(f.dir, "out"),
		RateLimit: models.RateLimit{Warning: 10},
		Task:      models.Task{Name: "repo", Type: models.KindData, Cache: true, Partition: true},
	}
}

func TestRun_WritesEveryResource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.runner.Run(context.Background(), f.config())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Requests)
	assert.Equal(t, 2, res.Writes)
	assert.True(t, res.CacheUpdated)

	data, err := os.ReadFile(filepath.Join(f.dir, "out", "users", "a.json"))
	require.NoError(t, err)
	assert.JSONEq(t, f.api.data["users/a"][0], string(data))
	assert.FileExists(t, filepath.Join(f.dir, "out", "users", "b.json"))
	assert.FileExists(t, f.cachePath)
	assert.Equal(t, 1, f.api.count("rate_limit"))
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), f.config())
	require.NoError(t, err)
	before, err := os.ReadFile(f.cachePath)
	require.NoError(t, err)

	// avatar host rotation alone must not count as a change
	f.api.data["users/a"] = []string{`{"login":"a","avatar_url":"https://2.gravatar.com/avatar/x"}`}

	res, err := f.runner.Run(context.Background(), f.config())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Writes)
	assert.Equal(t, 2, res.UpToDate)
	assert.False(t, res.CacheUpdated)

	after, err := os.ReadFile(f.cachePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_ChangeProducesOneWrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), f.config())
	require.NoError(t, err)

	f.api.data["users/b"] = []string{`{"login":"b","followers":1}`}
	res, err := f.runner.Run(context.Background(), f.config())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Writes)
	assert.Equal(t, 1, res.UpToDate)
	assert.True(t, res.CacheUpdated)

	data, err := os.ReadFile(filepath.Join(f.dir, "out", "users", "b.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"login":"b","followers":1}`, string(data))
}

func TestRun_WithoutCacheAlwaysWrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := f.config()
	cfg.Task.Cache = false

	for i := 0; i < 2; i++ {
		res, err := f.runner.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Writes)
		assert.False(t, res.CacheUpdated)
	}
	assert.NoFileExists(t, f.cachePath)
}

func TestRun_SkipsWhenBudgetTooSmall(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.remaining = 1

	res, err := f.runner.Run(context.Background(), f.config())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, res.Status)
	assert.Equal(t, []string{"rate_limit"}, f.api.calls)
	assert.NoDirExists(t, filepath.Join(f.dir, "out"))
	assert.NoFileExists(t, f.cachePath)
}

func TestRun_AuthenticatedNeverChecksBudget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.remaining = 0
	cfg := f.config()
	cfg.Auth = models.Auth{Authenticated: true, Token: "tok"}

	res, err := f.runner.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 0, f.api.count("rate_limit"))
	assert.Equal(t, 2, res.Writes)
}

func TestRun_MergesPagesSharingADestination(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := f.config()
	cfg.Dest = "team"

	res, err := f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Writes)

	data, err := os.ReadFile(filepath.Join(f.dir, "out", "team.json"))
	require.NoError(t, err)
	var merged map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &merged))
	assert.Len(t, merged, 2)
	assert.Contains(t, merged, "users/a")
	assert.Contains(t, merged, "users/b")
}

func TestRun_MultiPageFileIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.api.data["repos/o/r/contents/README.md"] = []string{`{"sha":"1"}`, `{"sha":"2"}`}
	cfg := f.config()
	cfg.Src = models.Sources{"repos/o/r/contents/README.md"}
	cfg.Task.Type = models.KindFile

	res, err := f.runner.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 0, res.Writes)
	assert.False(t, res.CacheUpdated)
}

func TestRun_NoSourceIsANoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := f.config()
	cfg.Src = nil

	res, err := f.runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, 0, res.Writes)
}

func TestRun_TransportFailureStopsBeforeCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	boom := errors.New("connection reset")
	f.api.fail = boom

	res, err := f.runner.Run(context.Background(), f.config())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.NoFileExists(t, f.cachePath)
}

func TestRun_StorageFailureStopsBeforeCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	runner := NewRunner(f.api, failingStorage{}, f.cachePath, logster.NewNop(), nil)

	_, err := runner.Run(context.Background(), f.config())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoFileExists(t, f.cachePath)
}

func TestRun_CorruptCacheFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cachePath, []byte("nope"), 0o644))

	_, err := f.runner.Run(context.Background(), f.config())
	assert.Error(t, err)
	assert.Empty(t, f.api.calls)
}
