package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
	Auth     AuthConfig     `json:"auth"`
	Storage  StorageConfig  `json:"storage"`
	Client   ClientConfig   `json:"client"`
	Alerting AlertingConfig `json:"alerting"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	// Bearer token required by the export endpoint.
	ExportToken string `json:"exportToken"`
}

type StorageConfig struct {
	BaseDir     string `json:"baseDir"`
	BaseURL     string `json:"baseURL"`
	MaxSizeMB   int64  `json:"maxSizeMB"`
	PublicRoute string `json:"publicRoute"`
}

type ClientConfig struct {
	// BaseURL of the remote metrics API; empty disables polling.
	BaseURL         string `json:"baseURL"`
	MetricsResource string `json:"metricsResource"`
	RetryAttempts   int    `json:"retryAttempts"`
	RetryDelay      string `json:"retryDelay"` // e.g. "1s"
	CacheTTL        string `json:"cacheTTL"`   // e.g. "5m"
	Timeout         string `json:"timeout"`
}

type AlertingConfig struct {
	CheckInterval string `json:"checkInterval"` // e.g. "1m"
	RulesFile     string `json:"rulesFile"`
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()
	return LoadFrom(*configFile)
}

// LoadFrom builds the config from env defaults, then overlays the optional
// JSON file. Exposed separately so tests can bypass flag parsing.
func LoadFrom(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "quotedesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			ExportToken: getEnv("EXPORT_TOKEN", ""),
		},
		Storage: StorageConfig{
			BaseDir:     getEnv("STORAGE_BASE_DIR", "./uploads"),
			BaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8080"),
			MaxSizeMB:   int64(getEnvInt("STORAGE_MAX_SIZE_MB", 5)),
			PublicRoute: getEnv("STORAGE_PUBLIC_ROUTE", "/uploads"),
		},
		Client: ClientConfig{
			BaseURL:         getEnv("CLIENT_BASE_URL", ""),
			MetricsResource: getEnv("CLIENT_METRICS_RESOURCE", "/v1/metrics/latest"),
			RetryAttempts:   getEnvInt("CLIENT_RETRY_ATTEMPTS", 3),
			RetryDelay:      getEnv("CLIENT_RETRY_DELAY", "1s"),
			CacheTTL:        getEnv("CLIENT_CACHE_TTL", "5m"),
			Timeout:         getEnv("CLIENT_TIMEOUT", "30s"),
		},
		Alerting: AlertingConfig{
			CheckInterval: getEnv("ALERT_CHECK_INTERVAL", "1m"),
			RulesFile:     getEnv("ALERT_RULES_FILE", ""),
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			log.Error().Err(err).Msg("load config file failed")
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.MaxSizeMB == 0 {
		cfg.Storage.MaxSizeMB = 5
	}
	if cfg.Client.MetricsResource == "" {
		cfg.Client.MetricsResource = "/v1/metrics/latest"
	}
	if cfg.Client.RetryAttempts == 0 {
		cfg.Client.RetryAttempts = 3
	}
	if cfg.Client.RetryDelay == "" {
		cfg.Client.RetryDelay = "1s"
	}
	if cfg.Client.CacheTTL == "" {
		cfg.Client.CacheTTL = "5m"
	}
	if cfg.Alerting.CheckInterval == "" {
		cfg.Alerting.CheckInterval = "1m"
	}

	return cfg, nil
}

// ParseDuration parses s, falling back to d on empty or invalid input.
func ParseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
