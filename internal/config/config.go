package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by storage.Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Image store backends.
const (
	ImageStoreLocal = "local"
	ImageStoreR2    = "r2"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	BaseURL         string        `json:"base_url"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`
	PublishInterval time.Duration `json:"publish_interval"`

	// Review storage
	StorageDriver string `json:"storage_driver"`
	ContentDir    string `json:"content_dir"`
	DatabaseDSN   string `json:"database_dsn"`

	// Uploaded images
	ImageStore    string `json:"image_store"`
	UploadDir     string `json:"upload_dir"`
	MaxUploadSize int64  `json:"max_upload_size"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`

	// Redis backs the view counter de-duplication
	RedisURL      string        `json:"redis_url"`
	RedisPrefix   string        `json:"redis_prefix"`
	ViewDedupeTTL time.Duration `json:"view_dedupe_ttl"`

	// Security
	AdminEmail        string        `json:"admin_email"`
	AdminPassword     string        `json:"-"`
	AdminPasswordHash string        `json:"-"`
	JWTSecret         string        `json:"-"`
	SessionTTL        time.Duration `json:"session_ttl"`
	LoginRate         float64       `json:"login_rate"`
	LoginBurst        int           `json:"login_burst"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogOutput string `json:"log_output"`
	LogPretty bool   `json:"log_pretty"`

	MetricsEnabled bool `json:"metrics_enabled"`
}

// Load reads the optional .env file and the process environment, then validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		PublishInterval: getEnvAsDuration("PUBLISH_INTERVAL", 5*time.Minute),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverFile)),
		ContentDir:    getEnv("CONTENT_DIR", "./content/reviews"),
		DatabaseDSN:   getEnv("DATABASE_DSN", ""),

		ImageStore:    strings.ToLower(getEnv("IMAGE_STORE", ImageStoreLocal)),
		UploadDir:     getEnv("UPLOAD_DIR", "./public/uploads"),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 10<<20), // 10MB

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "fairprice"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPrefix:   getEnv("REDIS_PREFIX", "fairprice:views:"),
		ViewDedupeTTL: getEnvAsDuration("VIEW_DEDUPE_TTL", 30*time.Minute),

		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		LoginRate:         getEnvAsFloat("LOGIN_RATE", 0.2),
		LoginBurst:        getEnvAsInt("LOGIN_BURST", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if cfg.R2Endpoint == "" && cfg.R2AccountID != "" {
		cfg.R2Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		log.Printf("Warning: JWT_SECRET is not set, using an ephemeral secret")
		cfg.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether APP_ENV names a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("one of ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.StorageDriver {
	case DriverFile:
		if c.ContentDir == "" {
			errs = append(errs, errors.New("CONTENT_DIR is required for the file driver"))
		}
	case DriverSQLite, DriverMySQL:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_DSN is required for the %s driver", c.StorageDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.ImageStore {
	case ImageStoreLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for local image storage"))
		}
	case ImageStoreR2:
		if c.R2Endpoint == "" || c.R2AccessKey == "" || c.R2SecretKey == "" || c.R2Bucket == "" {
			errs = append(errs, errors.New("R2 endpoint, credentials and bucket are required for r2 image storage"))
		}
		if c.R2PublicURL == "" {
			errs = append(errs, errors.New("R2_PUBLIC_URL is required for r2 image storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore))
	}

	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsInt64(name string, defaultVal int64) int64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
