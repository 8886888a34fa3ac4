package sessionstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*BoltIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	idx, err := Open(path)
	require.NoError(t, err)
	return idx, path
}

func TestBoltIndex_PutGetDelete(t *testing.T) {
	idx, _ := openTemp(t)
	defer idx.Close()

	info := core.SessionInfo{
		ID:        "s1",
		FileName:  "clients.xlsx",
		Path:      "/data/s1/clients.xlsx",
		Format:    "xlsx",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, idx.Put(info))

	got, ok, err := idx.Get("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info.Path, got.Path)
	assert.True(t, info.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, idx.Delete("s1"))
	_, ok, err = idx.Get("s1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, idx.Delete("never-existed"))
}

func TestBoltIndex_AllOrderedByCreation(t *testing.T) {
	idx, _ := openTemp(t)
	defer idx.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, idx.Put(core.SessionInfo{ID: "a", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, idx.Put(core.SessionInfo{ID: "b", CreatedAt: base}))
	require.NoError(t, idx.Put(core.SessionInfo{ID: "c", CreatedAt: base.Add(time.Hour)}))

	all, err := idx.All()
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, info := range all {
		ids[i] = info.ID
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestBoltIndex_SurvivesReopen(t *testing.T) {
	idx, path := openTemp(t)
	require.NoError(t, idx.Put(core.SessionInfo{ID: "keep", Path: "/x.csv"}))
	require.NoError(t, idx.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "/x.csv", all[0].Path)
}

func TestBoltIndex_RejectsEmptyID(t *testing.T) {
	idx, _ := openTemp(t)
	defer idx.Close()

	assert.Error(t, idx.Put(core.SessionInfo{Path: "/x.csv"}))
}
