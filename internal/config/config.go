package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"

	StorageLocal = "local"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Source   SourceConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Report   ReportConfig
	CORS     CORSConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name     string
	Version  string
	Port     int
	Env      string
	LogLevel string
}

// JWTConfig holds JWT configuration. Tokens are issued elsewhere; only the secret is needed.
type JWTConfig struct {
	Secret string
}

// SourceConfig selects where raw attendance comes from.
type SourceConfig struct {
	Type    string
	BaseURL string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

type StorageConfig struct {
	Type     string
	BasePath string
	BaseURL  string
}

// ReportConfig tunes the per-user report sessions.
type ReportConfig struct {
	Timezone        string
	SearchDebounce  time.Duration
	SessionIdleTTL  time.Duration
	SweepInterval   time.Duration
	ExportRetention time.Duration
	AllowedRoles    []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Name:     getEnv("APP_NAME", "campaign-attendance"),
		Version:  getEnv("APP_VERSION", "v1.0.0"),
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Attendance source configuration
	sourceTimeout, err := getEnvDuration("SOURCE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	config.Source = SourceConfig{
		Type:    strings.ToLower(getEnv("SOURCE_TYPE", SourceHTTP)),
		BaseURL: getEnv("SOURCE_BASE_URL", ""),
		Timeout: sourceTimeout,
	}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	dbMaxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "campaign"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: dbMaxConns,
	}

	// Storage configuration
	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", StorageLocal),
		BasePath: getEnv("STORAGE_BASE_PATH", "./storage"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "/files"),
	}

	// Report session configuration
	searchDebounce, err := getEnvDuration("SEARCH_DEBOUNCE", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	idleTTL, err := getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	exportRetention, err := getEnvDuration("EXPORT_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	config.Report = ReportConfig{
		Timezone:        getEnv("TIMEZONE", "UTC"),
		SearchDebounce:  searchDebounce,
		SessionIdleTTL:  idleTTL,
		SweepInterval:   sweepInterval,
		ExportRetention: exportRetention,
		AllowedRoles:    getEnvSlice("REPORT_ALLOWED_ROLES"),
	}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.Source.Type {
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("SOURCE_BASE_URL is required when SOURCE_TYPE=%s", SourceHTTP)
		}
	case SourcePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when SOURCE_TYPE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("unsupported SOURCE_TYPE %q", c.Source.Type)
	}

	if c.Storage.Type != StorageLocal {
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}

	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if c.Report.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative")
	}
	return nil
}

// Location returns the zone zone-less clock events are read in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
