package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	WhatsApp WhatsAppConfig
	Queue    QueueConfig
	Webhook  WebhookConfig
	Logging  LoggingConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	Environment  string
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type AuthConfig struct {
	JWTSecret string
	// TTL do cache de organizações resolvidas pelo middleware
	OrgCacheTTL time.Duration
}

type WhatsAppConfig struct {
	// Diretório para estado auxiliar do cliente (criado no startup)
	StoragePath          string
	QRCodeTimeout        time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
	RateLimitDelay       time.Duration
	PrintQR              bool
}

type QueueConfig struct {
	MessagesPerMinute    int
	DelayBetweenMessages time.Duration
	RetryDelay           time.Duration
	MaxAttempts          int
}

type WebhookConfig struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	Secret          string
	BackfillEvery   time.Duration
	BackfillLimit   int
	BreakerFailures int
}

type LoggingConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {

	if err := godotenv.Load(); err != nil {

		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvAsInt("POSTGRES_PORT", 5432),
			Name:            getEnv("POSTGRES_DB", "zapgateway"),
			User:            getEnv("POSTGRES_USER", "zapgateway"),
			Password:        getEnv("POSTGRES_PASSWORD", "zapgateway123"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 15*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			OrgCacheTTL: getEnvAsDuration("ORG_CACHE_TTL", time.Minute),
		},
		WhatsApp: WhatsAppConfig{
			StoragePath:          getEnv("SESSION_STORAGE_PATH", "./sessions"),
			QRCodeTimeout:        getEnvAsDuration("QR_CODE_TIMEOUT", 60*time.Second),
			ReconnectBaseDelay:   getEnvAsDuration("RECONNECT_BASE_DELAY", 5*time.Second),
			ReconnectMaxDelay:    getEnvAsDuration("RECONNECT_MAX_DELAY", 5*time.Minute),
			ReconnectMaxAttempts: getEnvAsInt("RECONNECT_MAX_ATTEMPTS", 5),
			RateLimitDelay:       getEnvAsDuration("RECONNECT_RATE_LIMIT_DELAY", 15*time.Minute),
			PrintQR:              getEnvAsBool("PRINT_QR", false),
		},
		Queue: QueueConfig{
			MessagesPerMinute:    getEnvAsInt("QUEUE_MESSAGES_PER_MINUTE", 20),
			DelayBetweenMessages: getEnvAsDuration("QUEUE_DELAY_BETWEEN_MESSAGES", 3*time.Second),
			RetryDelay:           getEnvAsDuration("QUEUE_RETRY_DELAY", 5*time.Second),
			MaxAttempts:          getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
		},
		Webhook: WebhookConfig{
			Timeout:         getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxRetries:      getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
			RetryBaseDelay:  getEnvAsDuration("WEBHOOK_RETRY_BASE_DELAY", 2*time.Second),
			Secret:          getEnv("WEBHOOK_SECRET", ""),
			BackfillEvery:   getEnvAsDuration("WEBHOOK_BACKFILL_INTERVAL", 5*time.Minute),
			BackfillLimit:   getEnvAsInt("WEBHOOK_BACKFILL_LIMIT", 100),
			BreakerFailures: getEnvAsInt("WEBHOOK_BREAKER_FAILURES", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", true),
		},
	}

	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.WhatsApp.StoragePath == "" {
		return fmt.Errorf("session storage path is required")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, fmt.Sprintf("%d", c.Server.Port))
}

// EnsureStorageDir cria o diretório de estado das sessões se não existir
func (c *Config) EnsureStorageDir() error {
	return os.MkdirAll(c.WhatsApp.StoragePath, 0o755)
}

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
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {

		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}

		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string, separator string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, separator)
	}
	return defaultValue
}
