package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var errInvalidConfig = errors.New("invalid configuration")

// Load reads .env, configs/config.yaml, config.<APP_ENVIRONMENT>.yaml and
// environment overrides, in that order of increasing precedence.
func Load() (Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFromFile loads a specific YAML file, still honouring env overrides.
func LoadFromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	bindLegacyEnv(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENVIRONMENT"))
	if env != "" {
		v.SetConfigName("config." + env)
		_ = v.MergeInConfig()
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	normalize(&cfg)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "matchmap")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.http_port", "3000")
	v.SetDefault("app.base_url", "http://localhost:3000")

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "matchmap")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.pool_max_conns", 10)
	v.SetDefault("database.pool_min_conns", 0)
	v.SetDefault("database.pool_max_conn_lifetime", "1h")
	v.SetDefault("database.pool_max_conn_idle_time", "30m")
	v.SetDefault("database.pool_health_check_period", "1m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", "168h")
	v.SetDefault("auth.cookie_name", "mm_session")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("n8n.webhook_url", "")
	v.SetDefault("n8n.callback_secret", "")
	v.SetDefault("n8n.timeout", "30s")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local.dir", "./uploads")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "eu-central-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("lifecycle.stale_after", "6h")
	v.SetDefault("lifecycle.file_url_ttl", "24h")
	v.SetDefault("lifecycle.file_url_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// bindLegacyEnv keeps the variable names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("app.base_url", "APP_BASE_URL", "APP_URL")
	_ = v.BindEnv("app.http_port", "APP_HTTP_PORT", "HTTP_PORT")
	_ = v.BindEnv("n8n.webhook_url", "N8N_WEBHOOK_URL", "N8N_WEBHOOK_START_URL")
	_ = v.BindEnv("database.host", "DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.name", "DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.user", "DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "$") {
			continue
		}
		if expanded := os.ExpandEnv(s); expanded != s {
			v.Set(key, expanded)
		}
	}
}

func normalize(cfg *Config) {
	cfg.App.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.App.BaseURL), "/")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:3000"
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Storage.Provider = strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.N8N.WebhookURL = strings.TrimSpace(cfg.N8N.WebhookURL)
	cfg.N8N.CallbackSecret = strings.TrimSpace(cfg.N8N.CallbackSecret)

	if cfg.Lifecycle.FileURLSecret == "" {
		cfg.Lifecycle.FileURLSecret = cfg.Auth.JWTSecret
	}
	if cfg.IsDevelopment() && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-insecure-secret"
		if cfg.Lifecycle.FileURLSecret == "" {
			cfg.Lifecycle.FileURLSecret = cfg.Auth.JWTSecret
		}
	}
}

func validateConfig(cfg Config) error {
	var problems []string

	if strings.TrimSpace(cfg.App.HTTPPort) == "" {
		problems = append(problems, "app.http_port is required")
	}
	switch cfg.Database.Driver {
	case "pgx", "pq":
	default:
		problems = append(problems, fmt.Sprintf("database.driver must be pgx or pq, got %q", cfg.Database.Driver))
	}
	switch cfg.Storage.Provider {
	case "local":
		if strings.TrimSpace(cfg.Storage.Local.Dir) == "" {
			problems = append(problems, "storage.local.dir is required")
		}
	case "s3":
		if strings.TrimSpace(cfg.Storage.S3.Bucket) == "" {
			problems = append(problems, "storage.s3.bucket is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.provider must be local or s3, got %q", cfg.Storage.Provider))
	}
	if !cfg.IsDevelopment() && cfg.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required outside development")
	}
	if cfg.Auth.SessionTTL <= 0 {
		problems = append(problems, "auth.session_ttl must be positive")
	}
	if cfg.N8N.Timeout <= 0 {
		problems = append(problems, "n8n.timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
