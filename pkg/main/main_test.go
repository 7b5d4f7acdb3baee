package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigReportsFailure(t *testing.T) {
	old := config.Configfile
	t.Cleanup(func() { config.Configfile = old })

	config.Configfile = filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(config.Configfile, []byte("[general\nwebport = "), 0o600))

	var out strings.Builder
	err := loadConfig(&out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Failed to load configuration")
	assert.Contains(t, out.String(), config.Configfile)
}
