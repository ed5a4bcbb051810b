package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("GYAT_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("GYAT_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), FileName)

	cfg := Default()
	cfg.Core.LogLevel = "debug"
	cfg.Core.CompressionLevel = 7
	cfg.Core.StatCache = false
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Core.LogLevel)
	assert.Equal(t, 7, loaded.Core.CompressionLevel)
	assert.False(t, loaded.Core.StatCache)
	assert.Equal(t, 256, loaded.Core.TreeCacheSize)
	assert.Equal(t, DefaultDateFormat, loaded.Log.DateFormat)
}

func TestLoadPartialFile(t *testing.T) {
	t.Setenv("GYAT_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("[core]\ntree_cache_size = 16\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Core.TreeCacheSize)
	assert.Equal(t, 3, cfg.Core.CompressionLevel)
	assert.True(t, cfg.Core.StatCache)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GYAT_LOG_LEVEL", "error")

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Core.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("GYAT_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("[core]\ncompression_level = 99\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
