package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Sources   SourcesConfig
	Store     StoreConfig
	Compare   CompareConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SourcesConfig locates the catalog datasets. Locations are http(s) URLs or file paths.
type SourcesConfig struct {
	Main         string        `mapstructure:"main"`
	Extended     string        `mapstructure:"extended"`
	Fallback     string        `mapstructure:"fallback"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DetailPage   string        `mapstructure:"detail_page"`
	InternalHost string        `mapstructure:"internal_host"`
}

// StoreConfig holds state store configuration
type StoreConfig struct {
	Type       string        `mapstructure:"type"` // "memory", "redis" or "sqlite"
	RedisURL   string        `mapstructure:"redis_url"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// CompareConfig holds comparison selection settings
type CompareConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// CatalogConfig holds listing settings
type CatalogConfig struct {
	PageSize  int      `mapstructure:"page_size"`
	Faculties []string `mapstructure:"faculties"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP   int     `mapstructure:"per_ip"`  // requests per minute per client
	Sources float64 `mapstructure:"sources"` // outgoing source requests per second
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// defaultFaculties is the university's faculty roster
var defaultFaculties = []string{
	"Подготовка научно-педагогических кадров в аспирантуре",
	"Строительно-политехнический колледж",
	"Факультет информационных технологий и компьютерной безопасности",
	"Факультет инженерных систем и сооружений",
	"Факультет экономики, менеджмента и инновационных технологий",
	"Факультет радиотехники и электроники",
	"Дорожно-транспортный факультет",
	"Факультет машиностроения и аэрокосмической техники",
	"Строительный факультет",
	"Факультет энергетики и систем управления",
	"Факультет архитектуры и градостроительства",
	"Гуманитарный факультет",
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/unicatalog/")

	// Environment variable settings: server.port -> UNICATALOG_SERVER_PORT
	v.SetEnvPrefix("UNICATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment. Variables that are
// already set win; a missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Source defaults
	v.SetDefault("sources.main", "")
	v.SetDefault("sources.extended", "data/cchgeu_programs.json")
	v.SetDefault("sources.fallback", "")
	v.SetDefault("sources.timeout", "15s")
	v.SetDefault("sources.detail_page", "program-detail.html")
	v.SetDefault("sources.internal_host", "cchgeu.ru")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.sqlite_path", "data/state.db")
	v.SetDefault("store.key_prefix", "unicatalog:")
	v.SetDefault("store.cache_ttl", "1h")

	v.SetDefault("compare.capacity", 5)

	v.SetDefault("catalog.page_size", 12)
	v.SetDefault("catalog.faculties", defaultFaculties)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.sources", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Sources.Extended == "" && config.Sources.Main == "" {
		return fmt.Errorf("at least one catalog source is required (set UNICATALOG_SOURCES_EXTENDED)")
	}

	switch config.Store.Type {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("store type must be 'memory', 'redis' or 'sqlite', got: %s", config.Store.Type)
	}

	if config.Store.Type == "redis" && config.Store.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when store type is 'redis'")
	}

	if config.Store.Type == "sqlite" && config.Store.SQLitePath == "" {
		return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
	}

	if config.Compare.Capacity < 2 {
		return fmt.Errorf("compare capacity must be at least 2, got: %d", config.Compare.Capacity)
	}

	if config.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog page size must be positive, got: %d", config.Catalog.PageSize)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got: %s", config.Log.Level)
	}

	return nil
}
