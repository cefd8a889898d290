package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string // "postgres" | "memory"
	DBURL       string

	// MailDriver selects how confirmation and reset emails leave the process: "log" | "smtp"
	MailDriver  string
	AppBaseURL  string
	FrontendURL string

	CORSOrigins      []string
	OTLPEndpoint     string
	TraceSampleRatio float64
	BcryptCost       int

	JWT   JWT
	Auth  Auth
	Admin Admin
	Redis Redis
	S3    S3
	SMTP  SMTP
}

type JWT struct {
	Secret    string
	Algorithm string
	AccessTTL time.Duration
	// Ephemeral is set when Secret was generated at startup; tokens do not
	// survive a restart and are not shared between replicas.
	Ephemeral bool
}

type Auth struct {
	// lifetime of confirmation and reset tokens
	VerificationTTL  time.Duration
	RenewalThreshold time.Duration
	UserCacheTTL     time.Duration
}

type Admin struct {
	Email    string
	Password string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type S3 struct {
	Endpoint       string
	PublicEndpoint string
	Region         string
	AccessKey      string
	SecretKey      string
	AvatarBucket   string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DBURL:       buildDBURL(),

		MailDriver:  getEnv("MAIL_DRIVER", "log"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		BcryptCost:       getEnvInt("BCRYPT_COST", 10),

		JWT: JWT{
			Secret:    getEnv("JWT_SECRET_KEY", ""),
			Algorithm: strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
			AccessTTL: time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 360)) * time.Minute,
		},
		Auth: Auth{
			VerificationTTL:  time.Duration(getEnvInt("VERIFICATION_TOKEN_TTL_MINUTES", 30)) * time.Minute,
			RenewalThreshold: time.Duration(getEnvInt("TOKEN_RENEWAL_THRESHOLD_SECONDS", 300)) * time.Second,
			UserCacheTTL:     time.Duration(getEnvInt("USER_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Admin: Admin{
			Email:    getEnv("ADMIN_DEFAULT_EMAIL", ""),
			Password: getEnv("ADMIN_DEFAULT_PASSWORD", ""),
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		S3: S3{
			Endpoint:       getEnv("MINIO_INTERNAL_ENDPOINT", ""),
			PublicEndpoint: strings.TrimRight(getEnv("MINIO_ENDPOINT", ""), "/"),
			Region:         getEnv("MINIO_REGION", "us-east-1"),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:      getEnv("MINIO_SECRET_KEY", ""),
			AvatarBucket:   getEnv("AVATARS_BUCKET", "avatars"),
		},
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@speakup.local"),
		},
	}

	if cfg.JWT.Secret == "" && (cfg.Env == "dev" || cfg.Env == "test") {
		if secret, err := randomSecret(); err == nil {
			cfg.JWT.Secret = secret
			cfg.JWT.Ephemeral = true
		}
	}

	return cfg
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Defaults returns the values Load would produce with an empty environment.
// Tests build on it instead of touching process state.
func Defaults() Config {
	return Config{
		Env:         "test",
		StoreDriver: "memory",
		MailDriver:  "log",
		AppBaseURL:  "http://localhost:8080",
		FrontendURL: "http://localhost:5173",
		BcryptCost:  4,

		TraceSampleRatio: 1,
		JWT: JWT{
			Secret:    "test-secret-key",
			Algorithm: "HS256",
			AccessTTL: 360 * time.Minute,
		},
		Auth: Auth{
			VerificationTTL:  30 * time.Minute,
			RenewalThreshold: 300 * time.Second,
		},
		S3: S3{AvatarBucket: "avatars"},
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}

	if _, ok := supportedAlgorithms[c.JWT.Algorithm]; !ok {
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWT.Algorithm))
	}

	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}

	if c.Auth.VerificationTTL <= 0 {
		errs = append(errs, errors.New("verification token lifetime must be positive"))
	}

	if c.Auth.RenewalThreshold < 0 || c.Auth.RenewalThreshold >= c.JWT.AccessTTL {
		errs = append(errs, errors.New("renewal threshold must be between zero and the access token lifetime"))
	}

	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1"))
	}

	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.MailDriver {
	case "log":
	case "smtp":
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when MAIL_DRIVER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MAIL_DRIVER %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "speakup")
	pass := getEnv("DB_PASSWORD", "speakup")
	name := getEnv("DB_NAME", "speakup")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
