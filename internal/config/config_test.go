package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, "UTF-8", cfg.Compiler.Encoding)
	assert.True(t, cfg.Compiler.ModernSyntax)
	assert.True(t, cfg.Compiler.Invokedynamic)
	assert.True(t, cfg.Compiler.PreserveGroovydoc)
	assert.Equal(t, 100000, cfg.Graph.MaxTraversalDepth)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")
	yaml := []byte("cache:\n  capacity: 250\nlogging:\n  debug: true\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Cache.Capacity)
	assert.True(t, cfg.Logging.Debug)
	// Untouched fields keep their default values.
	assert.Equal(t, "UTF-8", cfg.Compiler.Encoding)
}

func TestLoadInvalidYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [this is not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
