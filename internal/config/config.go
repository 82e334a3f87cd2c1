package config

import (
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	N8N       N8NConfig       `mapstructure:"n8n"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	AppName     string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	HTTPPort    string `mapstructure:"http_port"`
	// BaseURL is the externally reachable origin used for callback and file URLs.
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	// Driver selects the connection backend: "pgx" (pool) or "pq" (database/sql).
	Driver     string `mapstructure:"driver"`
	DBHost     string `mapstructure:"host"`
	DBPort     string `mapstructure:"port"`
	DBName     string `mapstructure:"name"`
	DBUser     string `mapstructure:"user"`
	DBPassword string `mapstructure:"password"`
	DBSSLMode  string `mapstructure:"ssl_mode"`

	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	PoolMaxConns          int32         `mapstructure:"pool_max_conns"`
	PoolMinConns          int32         `mapstructure:"pool_min_conns"`
	PoolMaxConnLifetime   time.Duration `mapstructure:"pool_max_conn_lifetime"`
	PoolMaxConnIdleTime   time.Duration `mapstructure:"pool_max_conn_idle_time"`
	PoolHealthCheckPeriod time.Duration `mapstructure:"pool_health_check_period"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type N8NConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	// CallbackSecret keys the HMAC on inbound callbacks. Empty disables verification.
	CallbackSecret string        `mapstructure:"callback_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Provider string             `mapstructure:"provider"`
	Local    LocalStorageConfig `mapstructure:"local"`
	S3       S3StorageConfig    `mapstructure:"s3"`
}

type LocalStorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type S3StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	Prefix          string `mapstructure:"prefix"`
}

type LifecycleConfig struct {
	// StaleAfter is the deadline after which QUEUED/RUNNING requests are expired.
	StaleAfter time.Duration `mapstructure:"stale_after"`
	FileURLTTL time.Duration `mapstructure:"file_url_ttl"`
	// FileURLSecret signs download links handed to the workflow engine.
	FileURLSecret string `mapstructure:"file_url_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func (c Config) IsDevelopment() bool {
	switch c.App.Environment {
	case "", "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

// DSN renders the keyword/value connection string understood by both pgx and
// lib/pq.
func (c DatabaseConfig) DSN() string {
	parts := []string{
		"host=" + strings.TrimSpace(c.DBHost),
		"port=" + strings.TrimSpace(c.DBPort),
		"user=" + strings.TrimSpace(c.DBUser),
		"dbname=" + strings.TrimSpace(c.DBName),
	}
	if c.DBPassword != "" {
		parts = append(parts, "password="+quoteDSN(c.DBPassword))
	}
	if mode := strings.TrimSpace(c.DBSSLMode); mode != "" {
		parts = append(parts, "sslmode="+mode)
	}
	if c.ConnectTimeout >= time.Second {
		parts = append(parts, "connect_timeout="+strconv.Itoa(int(c.ConnectTimeout/time.Second)))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
