package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalog_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	short := Round{
		RunID:     "run-1",
		Stem:      "2024_01_01-10:00:00_AM_scene_3",
		Scene:     3,
		Bracket:   "short",
		OK:        true,
		Files:     []string{"cam1/a.raw", "cam1/a.png", "cam2/a.raw", "cam2/a.png"},
		CreatedAt: at,
	}
	long := Round{
		RunID:     "run-1",
		Stem:      short.Stem,
		Scene:     3,
		Bracket:   "long",
		Err:       "incomplete frame: fol status 4",
		CreatedAt: at.Add(time.Second),
	}
	other := Round{RunID: "run-2", Stem: "x", Bracket: "short", OK: true, CreatedAt: at}

	for _, r := range []Round{short, long, other} {
		require.NoError(t, c.Record(ctx, r))
	}

	got, err := c.Rounds(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "short", got[0].Bracket)
	assert.True(t, got[0].OK)
	assert.Empty(t, got[0].Err)
	assert.ElementsMatch(t, short.Files, got[0].Files)
	assert.True(t, at.Equal(got[0].CreatedAt))

	assert.Equal(t, "long", got[1].Bracket)
	assert.False(t, got[1].OK)
	assert.Equal(t, long.Err, got[1].Err)
	assert.Empty(t, got[1].Files)
	assert.Equal(t, 3, got[1].Scene)
}

func TestCatalog_UnknownRun(t *testing.T) {
	got, err := openTemp(t).Rounds(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalog_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Record(ctx, Round{RunID: "r", Stem: "s", Bracket: "short", OK: true}))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	got, err := c.Rounds(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].CreatedAt.IsZero())
}
