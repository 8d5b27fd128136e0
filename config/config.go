// Package config loads the application configuration from the environment
// (and an optional .env file). It is the only package that reads env vars;
// the resulting value is passed to every component at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// MemoryURI selects the in-memory store instead of MongoDB.
const MemoryURI = "memory://"

const DefaultAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

type Config struct {
	Port    string
	GinMode string

	MongoURI string
	MongoDB  string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
	BcryptCost   int
	OTPTTL       time.Duration

	CORSOrigins   []string
	DefaultAvatar string

	SMTP  SMTPConfig
	Media MediaConfig
	Redis RedisConfig
	Push  PushConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether real mail delivery is configured.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

type MediaConfig struct {
	// Provider is "cloudinary" or "s3".
	Provider      string
	CloudinaryURL string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	S3AccessKey     string
	S3SecretKey     string
}

type RedisConfig struct {
	URL string
	TTL time.Duration
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
}

// Enabled reports whether web push can be sent.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// Load reads an optional env file (default ".env") and the process
// environment into a validated Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:          envOr("PORT", "8080"),
		GinMode:       envOr("GIN_MODE", "debug"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDB:       envOr("MONGODB_DB", "inkpost"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		DefaultAvatar: envOr("DEFAULT_AVATAR_URL", DefaultAvatar),
		CORSOrigins:   splitList(envOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", "no-reply@inkpost.local"),
		},
		Media: MediaConfig{
			Provider:        envOr("MEDIA_PROVIDER", "cloudinary"),
			CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
			S3Bucket:        os.Getenv("S3_BUCKET"),
			S3Region:        envOr("S3_REGION", "us-east-1"),
			S3Endpoint:      os.Getenv("S3_ENDPOINT"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
			S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			Subject:         envOr("VAPID_SUBJECT", "mailto:admin@inkpost.local"),
		},
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Redis.TTL, err = durationEnv("CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.MongoURI == "" {
		return errors.New("JWT_SECRET and MONGODB_URI must be set")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TokenTTL < 0 || c.OTPTTL < 0 {
		return errors.New("TOKEN_TTL and OTP_TTL must not be negative")
	}
	switch c.Media.Provider {
	case "cloudinary":
	case "s3":
		if c.Media.S3Bucket == "" {
			return errors.New("S3_BUCKET must be set when MEDIA_PROVIDER=s3")
		}
	default:
		return fmt.Errorf("unknown MEDIA_PROVIDER %q", c.Media.Provider)
	}
	return nil
}

// Release reports whether gin runs in release mode.
func (c *Config) Release() bool { return c.GinMode == "release" }

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
