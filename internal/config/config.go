package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageDriverLocal      = "local"
	StorageDriverCloudinary = "cloudinary"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port               string   `yaml:"port" env:"SERVER_PORT"`
		Mode               string   `yaml:"mode" env:"SERVER_MODE"`
		StoragePath        string   `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		PublicBaseURL      string   `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"SERVER_CORS_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		URL string `yaml:"url" env:"REDIS_URL"`
	} `yaml:"redis"`

	Storage struct {
		Driver     string `yaml:"driver" env:"STORAGE_DRIVER"`
		Cloudinary struct {
			CloudName string `yaml:"cloud_name" env:"CLOUDINARY_CLOUD_NAME"`
			APIKey    string `yaml:"api_key" env:"CLOUDINARY_API_KEY"`
			APISecret string `yaml:"api_secret" env:"CLOUDINARY_API_SECRET"`
			Folder    string `yaml:"folder" env:"CLOUDINARY_FOLDER"`
		} `yaml:"cloudinary"`
	} `yaml:"storage"`

	SMTP struct {
		Host          string `yaml:"host" env:"SMTP_HOST"`
		Port          int    `yaml:"port" env:"SMTP_PORT"`
		Username      string `yaml:"username" env:"SMTP_USER"`
		Password      string `yaml:"password" env:"SMTP_PASS"`
		From          string `yaml:"from" env:"SMTP_FROM"`
		SkipTLSVerify bool   `yaml:"skip_tls_verify" env:"SMTP_SKIP_TLS_VERIFY"`
	} `yaml:"smtp"`

	Push struct {
		WebhookURL string `yaml:"webhook_url" env:"PUSH_WEBHOOK_URL"`
	} `yaml:"push"`

	Notifications struct {
		DailyDigestCron   string `yaml:"daily_digest_cron" env:"NOTIFY_DAILY_DIGEST_CRON"`
		WeeklyDigestCron  string `yaml:"weekly_digest_cron" env:"NOTIFY_WEEKLY_DIGEST_CRON"`
		Timezone          string `yaml:"timezone" env:"NOTIFY_TIMEZONE"`
		WorkerConcurrency int    `yaml:"worker_concurrency" env:"NOTIFY_WORKER_CONCURRENCY"`
	} `yaml:"notifications"`

	Sentry struct {
		DSN         string `yaml:"dsn" env:"SENTRY_DSN"`
		Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT"`
	} `yaml:"sentry"`

	Metrics struct {
		Enabled bool `yaml:"enabled" env:"METRICS_ENABLED"`
	} `yaml:"metrics"`
}

// LoadConfig loads configuration from .env, a YAML file and environment variables, in that order
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		// Read file
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Parse YAML into Config structure
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"
	config.Server.CORSAllowedOrigins = []string{"*"}

	// Database defaults
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "classjournal"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// JWT defaults
	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "classjournal"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.URL = "redis://localhost:6379/0"

	// Storage defaults
	config.Storage.Driver = StorageDriverLocal
	config.Storage.Cloudinary.Folder = "journals"

	config.SMTP.Port = 587

	// Notification defaults
	config.Notifications.DailyDigestCron = "0 18 * * *"
	config.Notifications.WeeklyDigestCron = "0 18 * * 5"
	config.Notifications.Timezone = "UTC"
	config.Notifications.WorkerConcurrency = 5

	config.Sentry.Environment = "development"

	config.Metrics.Enabled = true
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	// Ensure required fields are set
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	// Validate JWT expiration formats
	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid database connection max lifetime: %w", err)
	}

	// Each storage driver needs its own settings
	switch config.Storage.Driver {
	case StorageDriverLocal:
		if config.Server.StoragePath == "" {
			return fmt.Errorf("storage path is required for the local storage driver")
		}
	case StorageDriverCloudinary:
		c := config.Storage.Cloudinary
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("cloudinary storage requires cloud name, api key and api secret")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Notifications.WorkerConcurrency <= 0 {
		return fmt.Errorf("notification worker concurrency must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// PublicBaseURL returns the externally reachable base URL of the API
func (c *Config) PublicBaseURL() string {
	if c.Server.PublicBaseURL != "" {
		return strings.TrimRight(c.Server.PublicBaseURL, "/")
	}
	return "http://localhost:" + c.Server.Port
}
