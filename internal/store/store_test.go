package store

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene_value.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCounter_MissingFileReadsZero(t *testing.T) {
	c := NewCounter(filepath.Join(t.TempDir(), "scene_value.txt"))

	n, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = c.Current(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCounter_Current(t *testing.T) {
	tests := []struct {
		stored   string
		minScene int
		want     int
	}{
		{"5", 1, 5},
		{"0", 3, 3},
		{"7\n", 7, 7},
		{" 12 ", 0, 12},
	}
	for _, tt := range tests {
		n, err := NewCounter(writeFile(t, tt.stored)).Current(tt.minScene)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "stored %q min %d", tt.stored, tt.minScene)
	}
}

func TestCounter_Malformed(t *testing.T) {
	_, err := NewCounter(writeFile(t, "five")).Current(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")
	var numErr *strconv.NumError
	assert.True(t, errors.As(err, &numErr), "parse error not kept: %v", err)
}

func TestCounter_Store(t *testing.T) {
	c := NewCounter(writeFile(t, "5"))
	require.NoError(t, c.Store(6))

	data, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.Equal(t, "6", string(data))

	n, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestWriteMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.txt")
	m := Metadata{
		RunID:        "abc",
		Stem:         "2024_01_01-10:00:00_AM_scene_3",
		Scene:        3,
		CapturedAt:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		WhiteBalance: 1.32,
		Gamma:        1,
		ShortUs:      100000,
		LongUs:       10000000,
		NumImages:    1,
		SourceRoot:   "dataset/cam1",
		FollowerRoot: "dataset/cam2",
		MinScene:     1,
	}
	require.NoError(t, WriteMetadata(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "white_balance: 1.32")
	assert.Contains(t, string(data), "short_exposure_us: 100000")

	var back Metadata
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.True(t, m.CapturedAt.Equal(back.CapturedAt))
	back.CapturedAt = m.CapturedAt
	assert.Equal(t, m, back)
}
