package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/spacedrep/internal/config"
)

func TestSetupTestConfig(t *testing.T) {
	tmpDir := t.TempDir()
	got := SetupTestConfig(t, tmpDir)

	want := filepath.Join(tmpDir, "config.yml")
	assert.Equal(t, want, got)

	// Verify all required directories were created.
	for _, d := range []string{"schedules", "reports"} {
		info, err := os.Stat(filepath.Join(tmpDir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	// Verify the config loads and points into tmpDir.
	loader, err := config.NewConfigLoader(got)
	require.NoError(t, err)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, config.StorageDriverYAML, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(tmpDir, "schedules"), cfg.Storage.Directory)
	assert.Equal(t, filepath.Join(tmpDir, "reports"), cfg.Reports.Directory)
}
