package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// Configfile is the path of the TOML configuration.
var Configfile = "./config/config.toml"

// GetConfigDir returns the directory path where configuration files are stored.
func GetConfigDir() string {
	return filepath.Dir(Configfile)
}

// LoadCfgDB loads the configuration file, creating it with defaults on the
// first start.
func LoadCfgDB() error {
	if _, err := os.Stat(Configfile); errors.Is(err, os.ErrNotExist) {
		fmt.Println("Config file not found. Creating new config file.")
		if err := WriteCfg(DefaultConfig()); err != nil {
			return err
		}
		fmt.Println("Config file created. Please edit it and run the application again.")
	}

	return SafeLoadAllSettings(false)
}

// DefaultConfig returns the configuration written on first start. It points
// to a backend on localhost exposing the four admission entities.
func DefaultConfig() *MainConfig {
	return &MainConfig{
		General: GeneralConfig{
			WebPort:               "9090",
			WebAdminUser:          "admin",
			WebAdminPass:          "admin",
			LogLevel:              logger.StatusInfo,
			LogFileSize:           5,
			LogFileCount:          5,
			DataSource:            "rest",
			DatabaseFile:          "./databases/admissions.db",
			DatabaseBackupCron:    "0 0 3 * * *",
			DatabaseBackupCount:   7,
			ItemsPerPage:          10,
			PerPageOptions:        []int{10, 25, 50, 100},
			BulkWorkers:           1,
			SessionTimeoutMinutes: 60,
			SessionCleanupCron:    "@every 10m",
			LoginAttemptsPerMin:   5,
		},
		Backend: BackendConfig{
			BaseURL:                    "http://localhost:8000",
			LoginEndpoint:              "/api/auth/login",
			TimeoutSeconds:             30,
			RetryCount:                 2,
			LimiterCalls:               20,
			LimiterSeconds:             1,
			CircuitBreakerFailures:     5,
			CircuitBreakerResetSeconds: 30,
		},
		Notification: NotificationConfig{
			PushoverMinLevel: "error",
		},
		Entities: []EntityConfig{
			{
				Name:           "users",
				Label:          "Utilisateurs",
				ListEndpoint:   "/api/users/list",
				AddEndpoint:    "/api/users/add",
				UpdateEndpoint: "/api/users/update",
				DeleteEndpoint: "/api/users/delete",
				DefaultSort:    "last_name",
			},
			{
				Name:           "sites",
				Label:          "Sites",
				ListEndpoint:   "/api/v1/sites/list",
				AddEndpoint:    "/api/v1/sites/add",
				UpdateEndpoint: "/api/v1/sites/update",
				DeleteEndpoint: "/api/v1/sites/delete",
				DefaultSort:    "name",
			},
			{
				Name:           "filieres",
				Label:          "Filières",
				ListEndpoint:   "/api/v1/filieres/list",
				AddEndpoint:    "/api/v1/filieres/add",
				UpdateEndpoint: "/api/v1/filieres/update",
				DeleteEndpoint: "/api/v1/filieres/delete",
				DefaultSort:    "name",
			},
			{
				Name:           "course_types",
				Label:          "Types de cours",
				ListEndpoint:   "/api/v1/course-types/list",
				AddEndpoint:    "/api/v1/course-types/add",
				UpdateEndpoint: "/api/v1/course-types/update",
				DeleteEndpoint: "/api/v1/course-types/delete",
				DefaultSort:    "name",
			},
		},
	}
}

// WriteCfg marshals cfg to Configfile, creating the directory if needed.
func WriteCfg(cfg *MainConfig) error {
	cnt, err := toml.Marshal(cfg)
	if err != nil {
		return &ConfigurationError{Type: "write", Message: "failed to encode configuration", Cause: err}
	}
	if err := os.MkdirAll(GetConfigDir(), 0o755); err != nil {
		return &ConfigurationError{Type: "write", Message: "failed to create config directory", Cause: err}
	}
	if err := os.WriteFile(Configfile, cnt, 0o644); err != nil {
		logger.Logtype(logger.StatusError, 1).
			Str("file", Configfile).
			Err(err).
			Msg("Failed to write config file")
		return &ConfigurationError{Type: "write", Message: "failed to write config file", Cause: err}
	}
	return nil
}

// UseConfig validates cfg and makes it the active snapshot without touching
// the file system.
func UseConfig(cfg *MainConfig) error {
	reloadMutex.Lock()
	defer reloadMutex.Unlock()

	snapshot, err := buildConfigSnapshot(cfg)
	if err != nil {
		return err
	}
	configSnapshot.Store(snapshot)
	return nil
}

// Watch reloads the configuration whenever Configfile is written and calls
// onReload after each successful reload. It blocks until ctx is done.
func Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating a new watcher: %w", err)
	}
	defer watcher.Close()

	st, err := os.Lstat(Configfile)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", Configfile)
	}

	// Watch the directory, not the file itself. Editors replace the file on save.
	if err := watcher.Add(GetConfigDir()); err != nil {
		return fmt.Errorf("%q: %w", Configfile, err)
	}

	name := filepath.Base(Configfile)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.LogDynamicanyErr(logger.StatusError, "config watcher", err)
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(e.Name) != name || !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create)) {
				continue
			}
			debounce = time.After(200 * time.Millisecond)
		case <-debounce:
			debounce = nil
			if err := SafeLoadAllSettings(true); err != nil {
				continue
			}
			if onReload != nil {
				onReload()
			}
		}
	}
}
