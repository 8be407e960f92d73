package config

import (
	"path/filepath"
	"strings"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Engine     EngineConfig
	Notify     NotifyConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// EngineConfig tunes the evaluation path. Staleness and timeouts are kept
// tight because access decisions are safety-relevant.
type EngineConfig struct {
	DefaultSchoolID      string
	RuleCacheTTLSeconds  int
	PendingPinTTLSeconds int
	StorageTimeoutMs     int
	EmergencySweepMs     int
}

type NotifyConfig struct {
	AdminWebhooks      []string
	WebhookSecret      string
	InsecureSkipVerify bool
	TimeoutMs          int
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "aegisx.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "aegisx:"),
	}

	engineCfg := EngineConfig{
		DefaultSchoolID:      getEnv("ENGINE_DEFAULT_SCHOOL_ID", "default"),
		RuleCacheTTLSeconds:  getEnvInt("ENGINE_RULE_CACHE_TTL_SECONDS", 5),
		PendingPinTTLSeconds: getEnvInt("ENGINE_PENDING_PIN_TTL_SECONDS", 90),
		StorageTimeoutMs:     getEnvInt("ENGINE_STORAGE_TIMEOUT_MS", 1500),
		EmergencySweepMs:     getEnvInt("ENGINE_EMERGENCY_SWEEP_MS", 1000),
	}

	var webhooks []string
	if v := getEnv("NOTIFY_ADMIN_WEBHOOKS", ""); v != "" {
		webhooks = strings.Split(v, ",")
	}
	notifyCfg := NotifyConfig{
		AdminWebhooks:      webhooks,
		WebhookSecret:      getEnv("NOTIFY_WEBHOOK_SECRET", ""),
		InsecureSkipVerify: getEnvBool("NOTIFY_WEBHOOK_INSECURE_SKIP_VERIFY", false),
		TimeoutMs:          getEnvInt("NOTIFY_TIMEOUT_MS", 5000),
	}

	cfg := &Config{
		App:        appCfg,
		Paths:      pathsCfg,
		Database:   dbCfg,
		Engine:     engineCfg,
		Notify:     notifyCfg,
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("DISPATCH_WORKER_POOL_SIZE", 8), QueueSize: getEnvInt("DISPATCH_WORKER_QUEUE_SIZE", 1000)},
	}

	Global = cfg
	return cfg, nil
}
