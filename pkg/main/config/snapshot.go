package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/pelletier/go-toml/v2"
)

// ConfigurationError represents configuration-related errors.
type ConfigurationError struct {
	Type    string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Type, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// ConfigSnapshot represents a complete, validated configuration snapshot.
type ConfigSnapshot struct {
	General      *GeneralConfig
	Backend      *BackendConfig
	Notification *NotificationConfig
	Entity       map[string]*EntityConfig
	cachetoml    MainConfig
	ValidatedAt  time.Time
}

var (
	// Atomic configuration storage for lock-free reads.
	configSnapshot atomic.Value // *ConfigSnapshot

	// Only taken while a new snapshot is built.
	reloadMutex sync.Mutex
)

// getCurrentConfig returns the current configuration snapshot (thread-safe).
func getCurrentConfig() *ConfigSnapshot {
	if snapshot, ok := configSnapshot.Load().(*ConfigSnapshot); ok {
		return snapshot
	}
	return nil
}

var knownEntities = []string{"users", "sites", "filieres", "course_types"}

// applyDefaults fills zero values. It runs before validation so an empty
// section still yields a usable snapshot.
func applyDefaults(cfg *MainConfig) {
	g := &cfg.General
	if g.WebPort == "" {
		g.WebPort = "9090"
	}
	if g.LogLevel == "" {
		g.LogLevel = logger.StatusInfo
	}
	if g.DataSource == "" {
		g.DataSource = "rest"
	}
	g.DataSource = strings.ToLower(g.DataSource)
	if g.DatabaseFile == "" {
		g.DatabaseFile = "./databases/admissions.db"
	}
	if len(g.PerPageOptions) == 0 {
		g.PerPageOptions = []int{10, 25, 50, 100}
	}
	if g.ItemsPerPage <= 0 {
		g.ItemsPerPage = g.PerPageOptions[0]
	}
	if g.BulkWorkers <= 0 {
		g.BulkWorkers = 1
	}
	if g.SessionTimeoutMinutes <= 0 {
		g.SessionTimeoutMinutes = 60
	}
	if g.SessionCleanupCron == "" {
		g.SessionCleanupCron = "@every 10m"
	}
	if g.LoginAttemptsPerMin <= 0 {
		g.LoginAttemptsPerMin = 5
	}

	b := &cfg.Backend
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = 30
	}
	if b.RetryCount < 0 {
		b.RetryCount = 0
	}
	if b.LimiterSeconds <= 0 {
		b.LimiterSeconds = 1
	}
	if b.CircuitBreakerResetSeconds <= 0 {
		b.CircuitBreakerResetSeconds = 30
	}

	if cfg.Notification.PushoverMinLevel == "" {
		cfg.Notification.PushoverMinLevel = "error"
	}

	for idx := range cfg.Entities {
		e := &cfg.Entities[idx]
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if e.Label == "" {
			e.Label = e.Name
		}
		if e.DeleteMethod == "" {
			e.DeleteMethod = "POST"
		}
		e.DeleteMethod = strings.ToUpper(e.DeleteMethod)
		if e.ItemsPerPage <= 0 {
			e.ItemsPerPage = g.ItemsPerPage
		}
	}
}

// validateConfiguration checks a configuration after defaults were applied.
func validateConfiguration(cfg *MainConfig) error {
	if cfg == nil {
		return &ConfigurationError{
			Type:    "validation",
			Message: "configuration is nil",
		}
	}

	switch cfg.General.DataSource {
	case "rest":
		if cfg.Backend.BaseURL == "" {
			return &ConfigurationError{
				Type:    "validation",
				Message: "backend base_url is required when data_source is rest",
			}
		}
	case "sqlite":
	default:
		return &ConfigurationError{
			Type:    "validation",
			Message: fmt.Sprintf("invalid data_source '%s', must be rest or sqlite", cfg.General.DataSource),
		}
	}

	if cfg.General.BulkWorkers > 32 {
		return &ConfigurationError{
			Type:    "validation",
			Message: "invalid bulk_workers count, must be 1-32",
		}
	}

	for _, n := range cfg.General.PerPageOptions {
		if n <= 0 {
			return &ConfigurationError{
				Type:    "validation",
				Message: "per_page_options must be positive",
			}
		}
	}

	if len(cfg.Entities) == 0 {
		return &ConfigurationError{
			Type:    "validation",
			Message: "at least one entity must be configured",
		}
	}

	seen := make(map[string]struct{}, len(cfg.Entities))
	for idx, entity := range cfg.Entities {
		if entity.Name == "" {
			return &ConfigurationError{
				Type:    "validation",
				Message: fmt.Sprintf("entity configuration %d missing name", idx),
			}
		}
		if !slices.Contains(knownEntities, entity.Name) {
			return &ConfigurationError{
				Type:    "validation",
				Message: fmt.Sprintf("unknown entity '%s'", entity.Name),
			}
		}
		if _, ok := seen[entity.Name]; ok {
			return &ConfigurationError{
				Type:    "validation",
				Message: fmt.Sprintf("entity '%s' configured twice", entity.Name),
			}
		}
		seen[entity.Name] = struct{}{}

		if entity.DeleteMethod != "POST" && entity.DeleteMethod != "DELETE" {
			return &ConfigurationError{
				Type:    "validation",
				Message: fmt.Sprintf("entity '%s' delete_method must be POST or DELETE", entity.Name),
			}
		}
		if cfg.General.DataSource == "rest" && entity.ListEndpoint == "" {
			return &ConfigurationError{
				Type:    "validation",
				Message: fmt.Sprintf("entity '%s' missing list_endpoint", entity.Name),
			}
		}
	}

	return nil
}

// buildConfigSnapshot creates a new configuration snapshot from TOML data.
func buildConfigSnapshot(tomlConfig *MainConfig) (*ConfigSnapshot, error) {
	if tomlConfig == nil {
		return nil, &ConfigurationError{
			Type:    "build",
			Message: "TOML configuration is nil",
		}
	}

	applyDefaults(tomlConfig)
	if err := validateConfiguration(tomlConfig); err != nil {
		return nil, err
	}

	snapshot := &ConfigSnapshot{
		cachetoml:   *tomlConfig,
		ValidatedAt: time.Now(),
	}
	snapshot.General = &snapshot.cachetoml.General
	snapshot.Backend = &snapshot.cachetoml.Backend
	snapshot.Notification = &snapshot.cachetoml.Notification
	snapshot.Entity = make(map[string]*EntityConfig, len(snapshot.cachetoml.Entities))
	for idx := range snapshot.cachetoml.Entities {
		cfg := &snapshot.cachetoml.Entities[idx]
		snapshot.Entity[cfg.Name] = cfg
	}

	return snapshot, nil
}

// SafeLoadAllSettings reads the configuration file, validates it and swaps
// the active snapshot. The previous snapshot stays active on error.
func SafeLoadAllSettings(reload bool) error {
	logger.Logtype(logger.StatusInfo, 1).
		Bool("reload", reload).
		Msg("Starting safe configuration load")

	tomlConfig, err := readConfigTomlSafe()
	if err != nil {
		logger.Logtype(logger.StatusError, 1).Err(err).Msg("Failed to read configuration file")

		return &ConfigurationError{
			Type:    "read",
			Message: "failed to read configuration file",
			Cause:   err,
		}
	}

	if err := UseConfig(tomlConfig); err != nil {
		logger.Logtype(logger.StatusError, 1).Err(err).Msg("Failed to build configuration snapshot")
		return err
	}
	newSnapshot := getCurrentConfig()

	logger.Logtype(logger.StatusInfo, 1).
		Time("validated_at", newSnapshot.ValidatedAt).
		Str("data_source", newSnapshot.General.DataSource).
		Int("entities", len(newSnapshot.Entity)).
		Msg("Configuration loaded successfully")

	return nil
}

// readConfigTomlSafe reads and parses the TOML configuration file safely.
func readConfigTomlSafe() (*MainConfig, error) {
	content, err := os.Open(Configfile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", Configfile, err)
	}
	defer content.Close()

	decoder := toml.NewDecoder(content)

	var config MainConfig

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}

	return &config, nil
}
