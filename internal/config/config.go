package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissingJWTSecret is returned by Validate when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// ErrMissingAlertAddress is returned by Validate when alert mail has no sender or recipient.
var ErrMissingAlertAddress = errors.New("ALERT_SENDER and ALERT_RECIPIENT are required")

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, takes precedence over the individual components.
type DatabaseConfig struct {
	Driver             string // "postgres" or "memory"
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds settings for the AWS SDK backed object store.
// Credentials and bucket are shared with MinIOConfig.
type S3Config struct {
	Region   string
	Endpoint string
}

// StorageConfig selects and configures the object store that holds blob chunks.
type StorageConfig struct {
	Driver string // "minio", "s3" or "memory"
	MinIO  MinIOConfig
	S3     S3Config

	// InitRetryInterval is the delay between attempts to reach the object store at startup.
	InitRetryInterval time.Duration
}

// BlobConfig tunes the chunked blob store.
type BlobConfig struct {
	ChunkSize int
	FindBatch int
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SMTPConfig holds notifier transport credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// AlertConfig holds addressing for unknown-face alert mails.
type AlertConfig struct {
	Sender    string
	Recipient string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	Location string
	Database DatabaseConfig
	Storage  StorageConfig
	Blob     BlobConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	Alert    AlertConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Location: getEnv("TZ_LOCATION", "UTC"),
		Database: DatabaseConfig{
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			URL:                getEnv("DATABASE_URL", ""),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "minio"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "uploads"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:   getEnv("S3_REGION", "us-east-1"),
				Endpoint: getEnv("S3_ENDPOINT", ""),
			},
			InitRetryInterval: getEnvDuration("STORAGE_INIT_RETRY", 3*time.Second),
		},
		Blob: BlobConfig{
			// 255 KiB, the classic GridFS chunk size.
			ChunkSize: getEnvInt("BLOB_CHUNK_SIZE", 255*1024),
			FindBatch: getEnvInt("BLOB_FIND_BATCH", 100),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Alert: AlertConfig{
			Sender:    getEnv("ALERT_SENDER", ""),
			Recipient: getEnv("ALERT_RECIPIENT", ""),
		},
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Alert.Sender == "" || c.Alert.Recipient == "" {
		return ErrMissingAlertAddress
	}
	switch c.Database.Driver {
	case "", "postgres", "memory":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "", "minio", "s3", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// TimeLocation resolves Location, falling back to UTC for unknown zone names.
func (c *AppConfig) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
