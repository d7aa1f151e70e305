package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the survey service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Email      EmailConfig
	Storage    StorageConfig
	Activation ActivationConfig
	IDCheck    IDCheckConfig
	CORS       CORSConfig
	NATS       NATSConfig
}

// NATSConfig holds the event broker settings. An empty URL disables
// event publishing.
type NATSConfig struct {
	URL string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port          string
	Mode          string // debug, release
	MinAPIVersion int    // minimum mobile API contract version
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the rate-limit store configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	AccessSecret      string
	RefreshSecret     string
	AccessExpiryMins  int
	RefreshExpiryDays int
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
}

// StorageConfig holds object storage settings for direct uploads
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTLMins  int
	MaxUploadBytes  int64
}

// ActivationConfig holds activation-flow settings
type ActivationConfig struct {
	CodeLength         int
	DefaultExpiryHours int
	RateLimitPerMinute int
}

// IDCheckConfig holds the national-ID validation client settings
type IDCheckConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CORSConfig holds allowed origins
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Mode:          getEnv("GIN_MODE", "debug"),
			MinAPIVersion: getEnvAsInt("MIN_API_VERSION", 1),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "brigada"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessExpiryMins:  getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
			RefreshExpiryDays: getEnvAsInt("REFRESH_TOKEN_EXPIRE_DAYS", 7),
		},
		Email: EmailConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM", "no-reply@brigada.app"),
			FromName:  getEnv("EMAIL_FROM_NAME", "Brigada"),
			BaseURL:   getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("STORAGE_BUCKET", "brigada-documents"),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			PresignTTLMins:  getEnvAsInt("STORAGE_PRESIGN_TTL_MINUTES", 30),
			MaxUploadBytes:  int64(getEnvAsInt("STORAGE_MAX_UPLOAD_MB", 10)) * 1024 * 1024,
		},
		Activation: ActivationConfig{
			CodeLength:         getEnvAsInt("ACTIVATION_CODE_LENGTH", 6),
			DefaultExpiryHours: getEnvAsInt("ACTIVATION_DEFAULT_EXPIRY_HOURS", 72),
			RateLimitPerMinute: getEnvAsInt("ACTIVATION_RATE_LIMIT_PER_MINUTE", 10),
		},
		IDCheck: IDCheckConfig{
			BaseURL: getEnv("ID_CHECK_BASE_URL", ""),
			APIKey:  getEnv("ID_CHECK_API_KEY", ""),
			Timeout: time.Duration(getEnvAsInt("ID_CHECK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:19006")),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if c.Activation.CodeLength < 4 || c.Activation.CodeLength > 10 {
		return fmt.Errorf("ACTIVATION_CODE_LENGTH must be between 4 and 10")
	}
	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetAccessExpiry returns the access token lifetime
func (c *Config) GetAccessExpiry() time.Duration {
	return time.Duration(c.JWT.AccessExpiryMins) * time.Minute
}

// GetRefreshExpiry returns the refresh token lifetime
func (c *Config) GetRefreshExpiry() time.Duration {
	return time.Duration(c.JWT.RefreshExpiryDays) * 24 * time.Hour
}

// GetPresignTTL returns the presigned upload URL lifetime
func (c *Config) GetPresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLMins) * time.Minute
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
