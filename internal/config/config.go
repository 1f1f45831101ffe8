package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string

	DB struct {
		Driver       string
		Host         string
		Port         string
		User         string
		Password     string
		Name         string
		SSLMode      string
		Path         string
		MaxOpenConns int
		MaxIdleConns int
	}

	Server struct {
		Port            string
		GinMode         string
		ShutdownTimeout time.Duration
	}

	Auth struct {
		JWTSecret      string
		Issuer         string
		Audience       string
		ServiceKeyHash string
	}

	Notify struct {
		Backend         string
		Channel         string
		RedisAddr       string
		RedisPassword   string
		RedisDB         int
		SSEPingInterval time.Duration
	}

	Archive struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		Region    string
		UseSSL    bool
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}

	Log struct {
		Level string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.Environment = getEnv("APP_ENV", "development")

	config.DB.Driver = getEnv("DB_DRIVER", "postgres")
	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "urna")
	config.DB.Password = getEnv("DB_PASSWORD", "urna_password")
	config.DB.Name = getEnv("DB_NAME", "urna_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	config.DB.Path = getEnv("DB_PATH", "urna.db")
	config.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 50)
	config.DB.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 10)

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second)

	config.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "")
	config.Auth.Issuer = getEnv("AUTH_JWT_ISSUER", "")
	config.Auth.Audience = getEnv("AUTH_JWT_AUDIENCE", "")
	config.Auth.ServiceKeyHash = getEnv("SERVICE_KEY_HASH", "")

	config.Notify.Backend = getEnv("NOTIFY_BACKEND", "memory")
	config.Notify.Channel = getEnv("NOTIFY_CHANNEL", "urna_events")
	config.Notify.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	config.Notify.RedisPassword = getEnv("REDIS_PASSWORD", "")
	config.Notify.RedisDB = getEnvAsInt("REDIS_DB", 0)
	config.Notify.SSEPingInterval = getEnvAsDuration("SSE_PING_INTERVAL", 15*time.Second)

	config.Archive.Endpoint = getEnv("ARCHIVE_ENDPOINT", "")
	config.Archive.AccessKey = getEnv("ARCHIVE_ACCESS_KEY", "")
	config.Archive.SecretKey = getEnv("ARCHIVE_SECRET_KEY", "")
	config.Archive.Bucket = getEnv("ARCHIVE_BUCKET", "urna-results")
	config.Archive.Region = getEnv("ARCHIVE_REGION", "us-east-1")
	config.Archive.UseSSL = getEnvAsBool("ARCHIVE_USE_SSL", false)

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization,X-Service-Key")

	config.Log.Level = getEnv("LOG_LEVEL", "info")

	return config
}

// Validate checks the settings the service cannot run without
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 32 characters in production"))
	}

	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, errors.New("DB_DRIVER must be postgres or sqlite"))
	}

	switch c.Notify.Backend {
	case "memory", "postgres", "redis":
	default:
		errs = append(errs, errors.New("NOTIFY_BACKEND must be memory, postgres or redis"))
	}

	if c.Notify.Backend == "postgres" && c.DB.Driver != "postgres" {
		errs = append(errs, errors.New("NOTIFY_BACKEND=postgres requires DB_DRIVER=postgres"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// AllowedOrigins splits the CORS origin list
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORS.AllowOrigins)
}

// AllowedMethods splits the CORS method list
func (c *Config) AllowedMethods() []string {
	return splitList(c.CORS.AllowMethods)
}

// AllowedHeaders splits the CORS header list
func (c *Config) AllowedHeaders() []string {
	return splitList(c.CORS.AllowHeaders)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
