package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonnyShabli/ghsync/internal/models"
)

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dest string
		want string
	}{
		{dest: "out/users/a", want: "out/users/a"},
		{dest: "out/users/a.json", want: "out/users/a"},
		{dest: "out/v1.2/data.json", want: "out/v1.2/data"},
		{dest: "out/v1.2/data", want: "out/v1.2/data"},
		{dest: "out/archive.tar.gz", want: "out/archive.tar"},
		{dest: "out/.hidden", want: "out/.hidden"},
		{dest: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.dest), tt.dest)
	}
}

func TestStore_CheckUnchangedIdentifier(t *testing.T) {
	t.Parallel()

	s := NewStore("cache.json")
	s.Set("repo", "out/users/a", models.KindData, "h1")
	s.Saved()

	changed := s.Check("repo", "out/users/a", models.KindData, "h1")

	assert.False(t, changed)
	assert.False(t, s.Dirty())
	e, ok := s.Get("repo", "out/users/a")
	require.True(t, ok)
	assert.Equal(t, "h1", e.ID)
}

func TestStore_CheckChangedIdentifier(t *testing.T) {
	t.Parallel()

	s := NewStore("cache.json")
	s.Set("repo", "out/users/a", models.KindData, "h1")
	s.Saved()

	changed := s.Check("repo", "out/users/a", models.KindData, "h2")

	assert.True(t, changed)
	assert.True(t, s.Dirty())
	e, _ := s.Get("repo", "out/users/a")
	assert.Equal(t, "h2", e.ID)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CheckMissingEntry(t *testing.T) {
	t.Parallel()

	s := NewStore("cache.json")
	assert.True(t, s.Check("repo", "out/users/b", models.KindFile, "abc"))
	assert.True(t, s.Dirty())

	e, ok := s.Get("repo", "out/users/b")
	require.True(t, ok)
	assert.Equal(t, models.KindFile, e.Kind)
}

func TestStore_PartitionsByTask(t *testing.T) {
	t.Parallel()

	s := NewStore("cache.json")
	s.Set("one", "out/a", models.KindData, "h1")
	s.Set("two", "out/a", models.KindData, "h2")

	e1, _ := s.Get("one", "out/a")
	e2, _ := s.Get("two", "out/a")
	assert.Equal(t, "h1", e1.ID)
	assert.Equal(t, "h2", e2.ID)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Dirty())
}

func TestLoad_RoundTripThroughDump(t *testing.T) {
	t.Parallel()

	location := filepath.Join(t.TempDir(), "cache.json")
	s := NewStore(location)
	s.Set("repo", "out/users/b", models.KindData, "h2")
	s.Set("repo", "out/users/a", models.KindData, "h1")

	data, err := s.Dump()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(location, data, 0o644))

	var records []models.CacheEntry
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "out/users/a", records[0].Dest, "dump is ordered")

	loaded, err := Load(location)
	require.NoError(t, err)
	assert.False(t, loaded.Dirty())
	e, ok := loaded.Get("repo", "out/users/b")
	require.True(t, ok)
	assert.Equal(t, "h2", e.ID)
}

func TestLoad_Corrupt(t *testing.T) {
	t.Parallel()

	location := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(location, []byte("{not json"), 0o644))

	_, err := Load(location)
	assert.Error(t, err)
}
