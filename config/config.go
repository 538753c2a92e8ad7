package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	App       App       `env-prefix:"APP_"`
	Database  Database  `env-prefix:"DB_"`
	PayPal    PayPal    `env-prefix:"PAYPAL_"`
	Storage   Storage   `env-prefix:"STORAGE_"`
	Mail      Mail      `env-prefix:"MAIL_"`
	Auth      Auth      `env-prefix:"AUTH_"`
	Downloads Downloads `env-prefix:"DOWNLOADS_"`
}

type App struct {
	Env       string `env:"ENV" env-default:"local"`
	Port      string `env:"PORT" env-default:"8080"`
	PublicURL string `env:"PUBLIC_URL" env-default:"http://localhost:8080"`
	// Fiber default BodyLimit is 4MB.
	BodyLimitMB     int           `env:"BODY_LIMIT_MB" env-default:"4"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS" env-default:"*"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" env-default:"60"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Database struct {
	Driver     string `env:"DRIVER" env-default:"postgres"`
	Host       string `env:"HOST" env-default:"db"`
	Port       int    `env:"PORT" env-default:"5432"`
	User       string `env:"USER"`
	Password   string `env:"PASSWORD"`
	Name       string `env:"NAME"`
	SSLMode    string `env:"SSLMODE" env-default:"disable"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"storefront.db"`
}

type PayPal struct {
	APIBase      string        `env:"API_BASE" env-default:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `env:"CLIENT_ID" env-required:"true"`
	ClientSecret string        `env:"CLIENT_SECRET" env-required:"true"`
	WebhookID    string        `env:"WEBHOOK_ID" env-required:"true"`
	Timeout      time.Duration `env:"TIMEOUT" env-default:"10s"`
}

type Storage struct {
	Region          string        `env:"REGION" env-default:"ap-northeast-1"`
	Bucket          string        `env:"BUCKET" env-required:"true"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"SECRET_ACCESS_KEY"`
	Endpoint        string        `env:"ENDPOINT"`
	PresignTTL      time.Duration `env:"PRESIGN_TTL" env-default:"600s"`
}

type Mail struct {
	SMTPHost      string        `env:"SMTP_HOST" env-default:"smtp.mailgun.org"`
	SMTPPort      int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUser      string        `env:"SMTP_USER"`
	SMTPPassword  string        `env:"SMTP_PASSWORD"`
	From          string        `env:"FROM" env-default:"no-reply@example.com"`
	AdminTo       string        `env:"ADMIN_TO"`
	RetryAttempts uint          `env:"RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" env-default:"2s"`
	SendTimeout   time.Duration `env:"SEND_TIMEOUT" env-default:"20s"`
}

type Auth struct {
	JWTSecret     string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

type Downloads struct {
	GrantSize int `env:"GRANT_SIZE" env-default:"2"`
}

// Load reads an optional .env file and binds the environment into Config.
func Load() (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	if cfg.Downloads.GrantSize <= 0 {
		return cfg, fmt.Errorf("DOWNLOADS_GRANT_SIZE must be positive, got %d", cfg.Downloads.GrantSize)
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func (a App) BodyLimitBytes() int {
	if a.BodyLimitMB <= 0 {
		return 4 * 1024 * 1024
	}
	return a.BodyLimitMB * 1024 * 1024
}
