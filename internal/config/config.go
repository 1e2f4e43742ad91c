package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string `yaml:"port" env:"SERVER_PORT"`
		Mode            string `yaml:"mode" env:"SERVER_MODE"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Mongo struct {
		URI            string `yaml:"uri" env:"MONGO_URI"`
		Database       string `yaml:"database" env:"MONGO_DATABASE"`
		ConnectTimeout string `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT"`
		MaxConnecting  int    `yaml:"max_connecting" env:"MONGO_MAX_CONNECTING"`
	} `yaml:"mongo"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	// Database is the Postgres audit ledger (trial audit, processed webhook events)
	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Session struct {
		CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
		Domain     string `yaml:"domain" env:"SESSION_COOKIE_DOMAIN"`
		Secure     bool   `yaml:"secure" env:"SESSION_COOKIE_SECURE"`
	} `yaml:"session"`

	Stripe struct {
		SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
		SuccessURL    string `yaml:"success_url" env:"STRIPE_SUCCESS_URL"`
		CancelURL     string `yaml:"cancel_url" env:"STRIPE_CANCEL_URL"`
	} `yaml:"stripe"`

	Cron struct {
		Secret   string `yaml:"secret" env:"CRON_SECRET"`
		Interval string `yaml:"interval" env:"CRON_INTERVAL"`
	} `yaml:"cron"`

	Trial struct {
		Days         int `yaml:"days" env:"TRIAL_DAYS"`
		ReminderDays int `yaml:"reminder_days" env:"TRIAL_REMINDER_DAYS"`
	} `yaml:"trial"`

	Metrics struct {
		StatsdAddr string   `yaml:"statsd_addr" env:"STATSD_ADDR"`
		Namespace  string   `yaml:"namespace" env:"STATSD_NAMESPACE"`
		Tags       []string `yaml:"tags" env:"STATSD_TAGS"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig reads .env (if any), then the YAML file (if any), then the environment on top.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ShutdownTimeout = "10s"

	config.Mongo.URI = "mongodb://localhost:27017"
	config.Mongo.Database = "circlehub"
	config.Mongo.ConnectTimeout = "10s"
	config.Mongo.MaxConnecting = 25

	config.Redis.Addr = "localhost:6379"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "circlehub_audit"
	config.Database.SSLMode = "disable"
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "168h"
	config.JWT.Issuer = "circlehub.app"

	config.Session.CookieName = "circlehub_session"

	config.Cron.Interval = "0s"

	config.Trial.Days = 14
	config.Trial.ReminderDays = 3

	config.Metrics.Namespace = "circlehub."

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

func validateConfig(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if config.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if config.Trial.Days <= 0 {
		return fmt.Errorf("trial days must be positive, got %d", config.Trial.Days)
	}

	durations := map[string]string{
		"jwt access token expiration": config.JWT.AccessTokenExpiration,
		"server shutdown timeout":     config.Server.ShutdownTimeout,
		"mongo connect timeout":       config.Mongo.ConnectTimeout,
		"cron interval":               config.Cron.Interval,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	return nil
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

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	mode := strings.ToLower(c.Server.Mode)
	return mode == "production" || mode == "release"
}
