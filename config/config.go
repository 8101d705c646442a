package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends understood by STORAGE_BACKEND.
const (
	BackendCloudinary = "cloudinary"
	BackendS3         = "s3"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Classifier ClassifierConfig
	Storage    StorageConfig
	Mirror     MirrorConfig
	Redis      RedisConfig
	Admin      AdminConfig
	Mail       MailConfig
	Digest     DigestConfig
	Attempts   AttemptConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type ClassifierConfig struct {
	Enabled bool
	APIKey  string
	Model   string
}

type StorageConfig struct {
	Backend    string
	Bucket     string
	Cloudinary CloudinaryConfig
	S3         S3Config
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type MirrorConfig struct {
	URL     string
	Timeout time.Duration
}

type RedisConfig struct {
	Addr           string
	IdempotencyTTL time.Duration
}

type AdminConfig struct {
	JWTSecret    string
	PasswordHash string
	TokenTTL     time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type DigestConfig struct {
	To       string
	Schedule string
	Timezone string
}

type AttemptConfig struct {
	TTL time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Classifier: ClassifierConfig{
			Enabled: v.GetBool("CLASSIFIER_ENABLED"),
			APIKey:  v.GetString("GEMINI_API_KEY"),
			Model:   v.GetString("GEMINI_MODEL"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Bucket:  v.GetString("STORAGE_BUCKET"),
			Cloudinary: CloudinaryConfig{
				CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
				APIKey:    v.GetString("CLOUDINARY_API_KEY"),
				APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			},
			S3: S3Config{
				Endpoint:        v.GetString("S3_ENDPOINT"),
				Region:          v.GetString("S3_REGION"),
				AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
				SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
				PublicBaseURL:   v.GetString("S3_PUBLIC_BASE_URL"),
			},
		},
		Mirror: MirrorConfig{
			URL:     v.GetString("SHEET_WEBHOOK_URL"),
			Timeout: v.GetDuration("SHEET_WEBHOOK_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:           v.GetString("REDIS_ADDR"),
			IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),
		},
		Admin: AdminConfig{
			JWTSecret:    v.GetString("JWT_SECRET"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
			TokenTTL:     v.GetDuration("ADMIN_TOKEN_TTL"),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("EMAIL_USER"),
			Password: v.GetString("EMAIL_PASS"),
		},
		Digest: DigestConfig{
			To:       v.GetString("DIGEST_TO"),
			Schedule: v.GetString("DIGEST_SCHEDULE"),
			Timezone: v.GetString("DIGEST_TIMEZONE"),
		},
		Attempts: AttemptConfig{
			TTL: v.GetDuration("ATTEMPT_TTL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("CLASSIFIER_ENABLED", true)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("STORAGE_BACKEND", BackendCloudinary)
	v.SetDefault("STORAGE_BUCKET", "wheel-images")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("SHEET_WEBHOOK_TIMEOUT", 10*time.Second)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("ADMIN_TOKEN_TTL", 12*time.Hour)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("DIGEST_SCHEDULE", "0 8 * * *")
	v.SetDefault("DIGEST_TIMEZONE", "UTC")
	v.SetDefault("ATTEMPT_TTL", 2*time.Hour)
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	switch c.Storage.Backend {
	case BackendCloudinary:
		if c.Storage.Cloudinary.CloudName == "" || c.Storage.Cloudinary.APIKey == "" || c.Storage.Cloudinary.APISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary backend"))
		}
	case BackendS3:
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET must not be empty"))
	}
	if c.Attempts.TTL <= 0 {
		errs = append(errs, errors.New("ATTEMPT_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// ClassifierActive reports whether images should be sent to the vision model.
func (c *Config) ClassifierActive() bool {
	return c.Classifier.Enabled && c.Classifier.APIKey != ""
}

// AdminEnabled reports whether the admin listing can be served.
func (c *Config) AdminEnabled() bool {
	return c.Admin.JWTSecret != "" && c.Admin.PasswordHash != ""
}

// MailEnabled reports whether the pending digest can be sent.
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != "" && c.Mail.User != "" && c.Digest.To != ""
}
