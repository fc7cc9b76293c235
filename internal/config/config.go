package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultCategoryURL = "https://ddtech.mx/productos/computadoras/portatiles"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type Config struct {
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type ScraperConfig struct {
	CategoryURL string
	MaxProducts int
	PacingDelay time.Duration
}

type BrowserConfig struct {
	DriverDir   string
	Headless    bool
	UserAgent   string
	LoadTimeout time.Duration
	SettleDelay time.Duration
}

type OutputConfig struct {
	ProductsFile         string
	CategorySnapshotFile string
	ProductSnapshotFile  string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set in
// the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Scraper: ScraperConfig{
			CategoryURL: getEnvOrDefault("DDTECH_CATEGORY_URL", DefaultCategoryURL),
			MaxProducts: getIntOrDefault("DDTECH_MAX_PRODUCTS", 10),
			PacingDelay: getDurationOrDefault("SCRAPER_PACING_DELAY", 2*time.Second),
		},
		Browser: BrowserConfig{
			DriverDir:   getEnvOrDefault("BROWSER_DRIVER_DIR", "./driver"),
			Headless:    getBoolOrDefault("BROWSER_HEADLESS", true),
			UserAgent:   getEnvOrDefault("BROWSER_USER_AGENT", DefaultUserAgent),
			LoadTimeout: getDurationOrDefault("BROWSER_LOAD_TIMEOUT", 15*time.Second),
			SettleDelay: getDurationOrDefault("BROWSER_SETTLE_DELAY", 3*time.Second),
		},
		Output: OutputConfig{
			ProductsFile:         getEnvOrDefault("OUTPUT_FILE", "productos_ddtech.csv"),
			CategorySnapshotFile: getEnvOrDefault("CATEGORY_SNAPSHOT_FILE", "categoria_ddtech.html"),
			ProductSnapshotFile:  getEnvOrDefault("PRODUCT_SNAPSHOT_FILE", "pagina_guardada.txt"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "ddtech"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "ddtech:events"),
		},
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Scraper.CategoryURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("DDTECH_CATEGORY_URL must be an absolute URL: %q", c.Scraper.CategoryURL)
	}

	if c.Scraper.MaxProducts < 1 {
		return fmt.Errorf("DDTECH_MAX_PRODUCTS must be at least 1")
	}

	if c.Scraper.PacingDelay < 0 {
		return fmt.Errorf("SCRAPER_PACING_DELAY cannot be negative")
	}

	if c.Browser.LoadTimeout <= 0 {
		return fmt.Errorf("BROWSER_LOAD_TIMEOUT must be positive")
	}

	if c.Browser.SettleDelay < 0 {
		return fmt.Errorf("BROWSER_SETTLE_DELAY cannot be negative")
	}

	if c.Output.ProductsFile == "" {
		return fmt.Errorf("OUTPUT_FILE is required")
	}

	if c.Database.Enabled && c.Database.DBName == "" {
		return fmt.Errorf("DB_NAME is required when DB_ENABLED is set")
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when REDIS_ENABLED is set")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// DSN returns the postgres connection string for the database section.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
