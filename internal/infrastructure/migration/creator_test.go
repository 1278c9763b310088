package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add shipment index", "add_shipment_index"},
		{"Add-Shipment-Index", "add_shipment_index"},
		{"ADD__SHIPMENT", "add_shipment"},
		{"queue v2", "queue_v2"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_seed.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_seed.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "Add lot index", "speeds up material lookup")
	require.NoError(t, err)

	assert.Equal(t, uint(8), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000008_add_lot_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000008_add_lot_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: Add lot index")
	assert.Contains(t, string(up), "speeds up material lookup")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Rollback: Add lot index")
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sql")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsUnusableName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_acts.up.sql":            {Data: []byte("--")},
		"000002_acts.down.sql":          {Data: []byte("--")},
		"000001_reference.up.sql":       {Data: []byte("--")},
		"000003_irreversible.up.sql":    {Data: []byte("--")},
		"README.md":                     {Data: []byte("docs")},
		"notes.sql":                     {Data: []byte("--")},
		"x_bad.up.sql":                  {Data: []byte("--")},
		"000009_dir.up.sql/placeholder": {Data: []byte("--")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, Info{Version: 1, Name: "reference"}, list[0])
	assert.Equal(t, Info{Version: 2, Name: "acts", HasDown: true}, list[1])
	assert.Equal(t, Info{Version: 3, Name: "irreversible"}, list[2])
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	list, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbedded(t *testing.T) {
	list, err := Embedded()
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, info := range list {
		assert.Equal(t, uint(i+1), info.Version, "versions must be contiguous")
		assert.True(t, info.HasDown, "migration %d has no down file", info.Version)
	}
	assert.Equal(t, "reference_data", list[0].Name)
}
