package config

// MainConfig is the root of config.toml.
type MainConfig struct {
	General      GeneralConfig      `toml:"general"`
	Backend      BackendConfig      `toml:"backend"`
	Notification NotificationConfig `toml:"notification"`
	Entities     []EntityConfig     `toml:"entities"`
}

// GeneralConfig holds the web server, logging and list defaults.
type GeneralConfig struct {
	WebPort      string `toml:"webport"        comment:"Port of the admin web interface"`
	WebAdminUser string `toml:"web_admin_user" comment:"Login used when the backend has no login endpoint"`
	WebAdminPass string `toml:"web_admin_pass"`
	// WebSessionSecret signs the session cookies. A random one is generated
	// at start when empty, which logs everybody out on restart.
	WebSessionSecret string `toml:"web_session_secret"`

	LogLevel      string `toml:"log_level"      comment:"debug, info, warn or error"`
	LogFileSize   int    `toml:"log_file_size"  comment:"Megabytes before the log rotates"`
	LogFileCount  uint8  `toml:"log_file_count"`
	LogCompress   bool   `toml:"log_compress"`
	LogColorize   bool   `toml:"log_colorize"`
	LogToFileOnly bool   `toml:"log_to_file_only"`
	TimeFormat    string `toml:"time_format"`
	TimeZone      string `toml:"time_zone"`

	// DataSource selects the repository: "rest" or "sqlite".
	DataSource   string `toml:"data_source"   comment:"rest or sqlite"`
	DatabaseFile string `toml:"database_file"`
	// DatabaseBackupCron schedules a VACUUM INTO copy of the sqlite file to
	// ./backup. Empty disables backups.
	DatabaseBackupCron  string `toml:"database_backup_cron"`
	DatabaseBackupCount int    `toml:"database_backup_count" comment:"Backups kept, 0 keeps all"`

	ItemsPerPage   int   `toml:"items_per_page"`
	PerPageOptions []int `toml:"per_page_options"`
	BulkWorkers    int   `toml:"bulk_workers" comment:"Concurrent requests of a bulk delete, 1 is sequential"`

	SessionTimeoutMinutes int    `toml:"session_timeout_minutes"`
	SessionCleanupCron    string `toml:"session_cleanup_cron"`
	LoginAttemptsPerMin   int    `toml:"login_attempts_per_minute"`

	CorsOrigins       []string `toml:"cors_origins"`
	EnableFileWatcher bool     `toml:"enable_file_watcher"`
}

// BackendConfig describes the REST backend.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
	// LoginEndpoint exchanges credentials for a bearer token. When empty the
	// static Token is used after a successful local login.
	LoginEndpoint string `toml:"login_endpoint"`
	Token         string `toml:"token"`

	TimeoutSeconds int `toml:"timeout_seconds"`
	RetryCount     int `toml:"retry_count"`

	LimiterCalls   int `toml:"limiter_calls"`
	LimiterSeconds int `toml:"limiter_seconds"`

	CircuitBreakerFailures     int `toml:"circuit_breaker_failures"`
	CircuitBreakerResetSeconds int `toml:"circuit_breaker_reset_seconds"`

	DisableTLSVerify bool `toml:"disable_tls_verify"`
}

// NotificationConfig configures the forwarding of error toasts.
type NotificationConfig struct {
	PushoverAppKey    string `toml:"pushover_app_key"`
	PushoverRecipient string `toml:"pushover_recipient"`
	// PushoverMinLevel is the lowest toast level forwarded: info, success,
	// warning or error.
	PushoverMinLevel string `toml:"pushover_min_level"`
}

// EntityConfig holds the endpoints and list options of one entity.
type EntityConfig struct {
	Name           string `toml:"name"`
	Label          string `toml:"label"`
	ListEndpoint   string `toml:"list_endpoint"`
	AddEndpoint    string `toml:"add_endpoint"`
	UpdateEndpoint string `toml:"update_endpoint"`
	DeleteEndpoint string `toml:"delete_endpoint"`
	// DeleteMethod is POST (body {"id": ...}) or DELETE (id appended to the path).
	DeleteMethod  string `toml:"delete_method"`
	ItemsPerPage  int    `toml:"items_per_page"`
	DefaultSort   string `toml:"default_sort"`
	DisableExport bool   `toml:"disable_export"`
}

// GetSettingsGeneral returns the general section of the active snapshot.
func GetSettingsGeneral() *GeneralConfig {
	currentSnapshot := getCurrentConfig()
	if currentSnapshot == nil {
		return nil
	}

	return currentSnapshot.General
}

func GetSettingsBackend() *BackendConfig {
	currentSnapshot := getCurrentConfig()
	if currentSnapshot == nil {
		return nil
	}

	return currentSnapshot.Backend
}

func GetSettingsNotification() *NotificationConfig {
	currentSnapshot := getCurrentConfig()
	if currentSnapshot == nil {
		return nil
	}

	return currentSnapshot.Notification
}

// GetSettingsEntity returns the entity configuration for name, or nil.
func GetSettingsEntity(name string) *EntityConfig {
	currentSnapshot := getCurrentConfig()
	if currentSnapshot == nil {
		return nil
	}

	return currentSnapshot.Entity[name]
}

// GetSettingsEntityAll returns the entities in file order.
func GetSettingsEntityAll() []EntityConfig {
	currentSnapshot := getCurrentConfig()
	if currentSnapshot == nil {
		return nil
	}

	return currentSnapshot.cachetoml.Entities
}
