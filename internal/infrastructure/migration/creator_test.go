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
		{"create ledger", "create_ledger"},
		{"Add-Exchange-Logs", "add_exchange_logs"},
		{"ADD_CARD_INDEX", "add_card_index"},
		{"add__rarity__rank", "add_rarity_rank"},
		{"Add Tier 18", "add_tier_18"},
		{"   spaces   ", "spaces"},
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

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "create ledger", "Accounts and cards")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_ledger.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_ledger.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: create ledger")
	assert.Contains(t, string(up), "-- Description: Accounts and cards")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	t.Run("next version follows the highest existing one", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000007_manual.up.sql"), []byte("--"), 0o644))

		mf, err := CreateMigration(dir, "add index", "")
		require.NoError(t, err)
		assert.Equal(t, "000008", mf.Version)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "")
		assert.Error(t, err)
	})
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrationsFS(t *testing.T) {
	t.Run("orders by version and pairs files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000002_exchange_logs.up.sql":   {Data: []byte("--")},
			"000002_exchange_logs.down.sql": {Data: []byte("--")},
			"000001_ledger.up.sql":          {Data: []byte("--")},
			"000001_ledger.down.sql":        {Data: []byte("--")},
			"000003_half.up.sql":            {Data: []byte("--")},
			"README.md":                     {Data: []byte("docs")},
			"notes_only.up.sql":             {Data: []byte("--")},
		}

		infos, err := ListMigrationsFS(fsys, ".")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, MigrationInfo{Version: 1, Name: "ledger", HasUp: true, HasDown: true}, infos[0])
		assert.Equal(t, "000002_exchange_logs", infos[1].BaseName())
		assert.True(t, infos[2].HasUp)
		assert.False(t, infos[2].HasDown)
	})

	t.Run("duplicate version with different names", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000001_a.up.sql": {Data: []byte("--")},
			"000001_b.up.sql": {Data: []byte("--")},
		}
		_, err := ListMigrationsFS(fsys, ".")
		assert.Error(t, err)
	})

	t.Run("directories are skipped", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000001_init.up.sql":       {Data: []byte("--")},
			"000002_dir.up.sql/nested": {Data: []byte("--")},
			"000001_init.down.sql":     {Data: []byte("--")},
		}
		infos, err := ListMigrationsFS(fsys, ".")
		require.NoError(t, err)
		assert.Len(t, infos, 1)
	})
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	infos, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	infos, err := EmbeddedMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, infos)

	for i, info := range infos {
		assert.Equal(t, uint(i+1), info.Version, "versions must be contiguous")
		assert.True(t, info.HasUp, info.BaseName())
		assert.True(t, info.HasDown, info.BaseName())
	}
}
