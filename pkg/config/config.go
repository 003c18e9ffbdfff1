package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/policy"
)

// Application environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Policy        PolicyConfig        `yaml:"policy"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env string `yaml:"env"`
}

// IsProduction reports whether cookies must be marked Secure
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// TrustProxy makes the security pipeline read the client address from
	// X-Forwarded-For / X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool `yaml:"trust_proxy"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
	AutoMigrate bool          `yaml:"auto_migrate"`
	Debug       bool          `yaml:"debug"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis and the
// rate windows are kept in memory.
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// Enabled reports whether a Redis URL is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PolicyConfig holds the security policy settings
type PolicyConfig struct {
	Key             string        `yaml:"key"`
	ShieldMode      string        `yaml:"shield_mode"`
	BotMode         string        `yaml:"bot_mode"`
	RateMode        string        `yaml:"rate_mode"`
	AllowedBots     []string      `yaml:"allowed_bots"`
	BurstMax        int           `yaml:"burst_max"`
	BurstInterval   time.Duration `yaml:"burst_interval"`
	WindowCacheSize int           `yaml:"window_cache_size"`
}

// Modes parses the three rule modes
func (p PolicyConfig) Modes() (bot, shield, rate policy.Mode, err error) {
	if bot, err = policy.ParseMode(p.BotMode); err != nil {
		return "", "", "", fmt.Errorf("POLICY_BOT_MODE: %w", err)
	}
	if shield, err = policy.ParseMode(p.ShieldMode); err != nil {
		return "", "", "", fmt.Errorf("POLICY_SHIELD_MODE: %w", err)
	}
	if rate, err = policy.ParseMode(p.RateMode); err != nil {
		return "", "", "", fmt.Errorf("POLICY_RATE_MODE: %w", err)
	}
	return bot, shield, rate, nil
}

// BotCategories parses the allowed bot categories
func (p PolicyConfig) BotCategories() ([]policy.BotCategory, error) {
	categories := make([]policy.BotCategory, 0, len(p.AllowedBots))
	for _, raw := range p.AllowedBots {
		category, err := policy.ParseBotCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("POLICY_ALLOWED_BOTS: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// BurstWindow is the base sliding window applied to every request
func (p PolicyConfig) BurstWindow(mode policy.Mode) policy.Window {
	return policy.Window{
		Name:     "burst",
		Max:      p.BurstMax,
		Interval: p.BurstInterval,
		Mode:     mode,
	}
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return parseLogLevel(o.LogLevel)
}

// Defaults returns the configuration used before any file or environment
// variable is applied
func Defaults() *Config {
	return &Config{
		App: AppConfig{Env: EnvDevelopment},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxConns:    10,
			MinConns:    2,
			Timeout:     5 * time.Second,
			MaxLifetime: time.Hour,
			MaxIdleTime: 10 * time.Minute,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Policy: PolicyConfig{
			ShieldMode:      string(policy.ModeLive),
			BotMode:         string(policy.ModeLive),
			RateMode:        string(policy.ModeLive),
			AllowedBots:     []string{string(policy.CategorySearchEngine), string(policy.CategoryPreview)},
			BurstMax:        5,
			BurstInterval:   2 * time.Second,
			WindowCacheSize: policy.DefaultMemoryWindowSize,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "acquisitions",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from defaults, CONFIG_FILE, .env and the
// environment, in increasing order of precedence
func LoadConfig() (*Config, error) {
	return load(".env")
}

func load(envFiles ...string) (*Config, error) {
	// .env never overrides variables already set in the process
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAML overlays the file onto cfg. Keys missing from the file keep
// their current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Env = getEnv("APP_ENV", c.App.Env)

	s := &c.Server
	s.Host = getEnv("HOST", s.Host)
	s.Port = getEnv("PORT", s.Port)
	s.HealthPort = getEnv("HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.CORSOrigins = getEnvList("CORS_ORIGINS", s.CORSOrigins)
	s.TrustProxy = getEnvBool("TRUST_PROXY", s.TrustProxy)

	db := &c.Database
	db.URL = getEnv("DATABASE_URL", db.URL)
	db.MaxConns = getEnvInt("DB_MAX_CONNS", db.MaxConns)
	db.MinConns = getEnvInt("DB_MIN_CONNS", db.MinConns)
	db.Timeout = getEnvDuration("DB_TIMEOUT", db.Timeout)
	db.MaxLifetime = getEnvDuration("DB_MAX_LIFETIME", db.MaxLifetime)
	db.MaxIdleTime = getEnvDuration("DB_MAX_IDLE_TIME", db.MaxIdleTime)
	db.AutoMigrate = getEnvBool("DB_AUTO_MIGRATE", db.AutoMigrate)
	db.Debug = getEnvBool("DB_DEBUG", db.Debug)

	r := &c.Redis
	r.URL = getEnv("REDIS_URL", r.URL)
	r.Password = getEnv("REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("REDIS_DB", r.DB)
	r.PoolSize = getEnvInt("REDIS_POOL_SIZE", r.PoolSize)
	r.MaxRetries = getEnvInt("REDIS_MAX_RETRIES", r.MaxRetries)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvDuration("JWT_EXPIRES_IN", c.Auth.TokenTTL)

	p := &c.Policy
	p.Key = getEnv("POLICY_KEY", p.Key)
	p.ShieldMode = strings.ToUpper(getEnv("POLICY_SHIELD_MODE", p.ShieldMode))
	p.BotMode = strings.ToUpper(getEnv("POLICY_BOT_MODE", p.BotMode))
	p.RateMode = strings.ToUpper(getEnv("POLICY_RATE_MODE", p.RateMode))
	p.AllowedBots = getEnvList("POLICY_ALLOWED_BOTS", p.AllowedBots)
	p.BurstMax = getEnvInt("POLICY_BURST_MAX", p.BurstMax)
	p.BurstInterval = getEnvDuration("POLICY_BURST_INTERVAL", p.BurstInterval)
	p.WindowCacheSize = getEnvInt("POLICY_WINDOW_CACHE_SIZE", p.WindowCacheSize)

	o := &c.Observability
	o.LogLevel = getEnv("LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid APP_ENV: %s (must be development, production, or test)", c.App.Env)
	}

	// Server
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Required secrets
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Policy.Key == "" {
		return fmt.Errorf("POLICY_KEY environment variable is required")
	}

	// Database pool
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}

	// Policy
	if _, _, _, err := c.Policy.Modes(); err != nil {
		return err
	}
	if _, err := c.Policy.BotCategories(); err != nil {
		return err
	}
	if c.Policy.BurstMax <= 0 {
		return fmt.Errorf("POLICY_BURST_MAX must be positive")
	}
	if c.Policy.BurstInterval <= 0 {
		return fmt.Errorf("POLICY_BURST_INTERVAL must be positive")
	}

	// OpenTelemetry
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
