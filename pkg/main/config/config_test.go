package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	old := Configfile
	Configfile = filepath.Join(t.TempDir(), "config", "config.toml")
	t.Cleanup(func() { Configfile = old })
	return Configfile
}

func TestLoadCfgDBCreatesDefaults(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, LoadCfgDB())
	assert.FileExists(t, path)

	general := GetSettingsGeneral()
	require.NotNil(t, general)
	assert.Equal(t, "9090", general.WebPort)
	assert.Equal(t, "rest", general.DataSource)
	assert.Equal(t, 1, general.BulkWorkers)

	sites := GetSettingsEntity("sites")
	require.NotNil(t, sites)
	assert.Equal(t, "/api/v1/sites/delete", sites.DeleteEndpoint)
	assert.Equal(t, "POST", sites.DeleteMethod)
	assert.Equal(t, 10, sites.ItemsPerPage)
	assert.Len(t, GetSettingsEntityAll(), 4)
	assert.Nil(t, GetSettingsEntity("movies"))
}

func TestApplyDefaults(t *testing.T) {
	cfg := &MainConfig{
		General:  GeneralConfig{DataSource: "SQLite"},
		Entities: []EntityConfig{{Name: " Users ", DeleteMethod: "delete"}},
	}
	applyDefaults(cfg)

	assert.Equal(t, "sqlite", cfg.General.DataSource)
	assert.Equal(t, []int{10, 25, 50, 100}, cfg.General.PerPageOptions)
	assert.Equal(t, 10, cfg.General.ItemsPerPage)
	assert.Equal(t, "@every 10m", cfg.General.SessionCleanupCron)
	assert.Equal(t, 30, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, "error", cfg.Notification.PushoverMinLevel)
	assert.Equal(t, "users", cfg.Entities[0].Name)
	assert.Equal(t, "users", cfg.Entities[0].Label)
	assert.Equal(t, "DELETE", cfg.Entities[0].DeleteMethod)
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MainConfig)
		wantErr string
	}{
		{name: "default is valid", mutate: func(*MainConfig) {}},
		{
			name:    "rest needs base url",
			mutate:  func(c *MainConfig) { c.Backend.BaseURL = "" },
			wantErr: "base_url",
		},
		{
			name: "sqlite needs no backend",
			mutate: func(c *MainConfig) {
				c.General.DataSource = "sqlite"
				c.Backend.BaseURL = ""
			},
		},
		{
			name:    "unknown data source",
			mutate:  func(c *MainConfig) { c.General.DataSource = "mongo" },
			wantErr: "data_source",
		},
		{
			name:    "too many bulk workers",
			mutate:  func(c *MainConfig) { c.General.BulkWorkers = 100 },
			wantErr: "bulk_workers",
		},
		{
			name:    "no entities",
			mutate:  func(c *MainConfig) { c.Entities = nil },
			wantErr: "at least one entity",
		},
		{
			name:    "unknown entity",
			mutate:  func(c *MainConfig) { c.Entities[0].Name = "movies" },
			wantErr: "unknown entity",
		},
		{
			name:    "duplicate entity",
			mutate:  func(c *MainConfig) { c.Entities[1].Name = "users" },
			wantErr: "configured twice",
		},
		{
			name:    "bad delete method",
			mutate:  func(c *MainConfig) { c.Entities[0].DeleteMethod = "PATCH" },
			wantErr: "delete_method",
		},
		{
			name:    "missing list endpoint",
			mutate:  func(c *MainConfig) { c.Entities[0].ListEndpoint = "" },
			wantErr: "list_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			applyDefaults(cfg)

			err := validateConfiguration(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "validation", cerr.Type)
			assert.Contains(t, cerr.Error(), tt.wantErr)
		})
	}
}

func TestSafeLoadKeepsPreviousSnapshotOnError(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, LoadCfgDB())
	before := getCurrentConfig()

	require.NoError(t, os.WriteFile(path, []byte("[general\nbroken"), 0o644))
	err := SafeLoadAllSettings(true)

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "read", cerr.Type)
	assert.Same(t, before, getCurrentConfig())
}

func TestUseConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.DataSource = "sqlite"
	cfg.General.BulkWorkers = 4
	require.NoError(t, UseConfig(cfg))

	assert.Equal(t, 4, GetSettingsGeneral().BulkWorkers)
	assert.Equal(t, "http://localhost:8000", GetSettingsBackend().BaseURL)
	assert.Equal(t, "error", GetSettingsNotification().PushoverMinLevel)

	bad := DefaultConfig()
	bad.Entities = nil
	assert.Error(t, UseConfig(bad))
	assert.Equal(t, 4, GetSettingsGeneral().BulkWorkers)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, LoadCfgDB())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	}()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.General.WebPort = "9191"
	require.NoError(t, WriteCfg(cfg))

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
	assert.Equal(t, "9191", GetSettingsGeneral().WebPort)
	assert.FileExists(t, path)

	cancel()
	assert.NoError(t, <-done)
}
