package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8081"`

	DBDSN         string `env:"DB_DSN"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"dev-insecure-secret-change"`
	AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"24h"`
	RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	ResetTTL   time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`

	// ExposeResetToken echoes password-reset tokens in API responses.
	// Keep off outside dev/test; the token is emailed either way.
	ExposeResetToken bool `env:"AUTH_EXPOSE_RESET_TOKEN" envDefault:"false"`

	UploadBase string `env:"UPLOAD_BASE" envDefault:"uploads"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM" envDefault:"noreply@docmon.local"`
	ResetURL string `env:"RESET_URL" envDefault:"http://localhost:8081/reset"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
