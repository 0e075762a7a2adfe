// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Identity provider backends.
const (
	IdentityDirectory = "directory"
	IdentityClerk     = "clerk"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	RateLimitEnabled  bool          `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitFailOpen bool          `mapstructure:"RATE_LIMIT_FAIL_OPEN"`
	PostRateLimit     int           `mapstructure:"POST_RATE_LIMIT"`
	PostRateWindow    time.Duration `mapstructure:"POST_RATE_WINDOW"`
	ProfileRateLimit  int           `mapstructure:"PROFILE_RATE_LIMIT"`

	IdentityProvider string        `mapstructure:"IDENTITY_PROVIDER"`
	IdentityAPIURL   string        `mapstructure:"IDENTITY_API_URL"`
	IdentityAPIKey   string        `mapstructure:"IDENTITY_API_KEY"`
	IdentityTimeout  time.Duration `mapstructure:"IDENTITY_TIMEOUT"`
	IdentityCacheTTL time.Duration `mapstructure:"IDENTITY_CACHE_TTL"`

	ExternalCallTimeout time.Duration `mapstructure:"EXTERNAL_CALL_TIMEOUT"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("Loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "chirp")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("JWT_AUDIENCE", "")

	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_FAIL_OPEN", false)
	viper.SetDefault("POST_RATE_LIMIT", 3)
	viper.SetDefault("POST_RATE_WINDOW", time.Minute)
	viper.SetDefault("PROFILE_RATE_LIMIT", 20)

	viper.SetDefault("IDENTITY_PROVIDER", IdentityDirectory)
	viper.SetDefault("IDENTITY_API_URL", "https://api.clerk.com")
	viper.SetDefault("IDENTITY_API_KEY", "")
	viper.SetDefault("IDENTITY_TIMEOUT", 3*time.Second)
	viper.SetDefault("IDENTITY_CACHE_TTL", 5*time.Minute)

	viper.SetDefault("EXTERNAL_CALL_TIMEOUT", 5*time.Second)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.RateLimitEnabled {
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required while RATE_LIMIT_ENABLED is true")
		}
		if c.PostRateLimit <= 0 || c.PostRateWindow <= 0 {
			return errors.New("POST_RATE_LIMIT and POST_RATE_WINDOW must be positive")
		}
		if c.ProfileRateLimit <= 0 {
			return errors.New("PROFILE_RATE_LIMIT must be positive")
		}
	}

	switch c.IdentityProvider {
	case IdentityDirectory:
	case IdentityClerk:
		if c.IdentityAPIURL == "" || c.IdentityAPIKey == "" {
			return errors.New("IDENTITY_API_URL and IDENTITY_API_KEY are required for the clerk identity provider")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}
	if c.IdentityTimeout <= 0 || c.ExternalCallTimeout <= 0 {
		return errors.New("IDENTITY_TIMEOUT and EXTERNAL_CALL_TIMEOUT must be positive")
	}

	if c.TracingEnabled {
		switch c.TracingExporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter)
		}
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if !c.RateLimitEnabled {
			return errors.New("RATE_LIMIT_ENABLED cannot be false in production")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// DSN returns the postgres connection string for the primary database.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
