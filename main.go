package main

import (
	"os"

	"docmon/config"
	pkglog "docmon/pkg/log"
	"docmon/pkg/mailer"

	"github.com/gin-gonic/gin"
)

var (
	cfg       *config.Config
	logger    pkglog.Logger
	jwtSecret []byte
	mail      *mailer.Mailer
)

func main() {
	cfg = config.MustLoad()
	logger = pkglog.New(cfg.AppEnv)
	jwtSecret = []byte(cfg.JWTSecret)
	if cfg.SMTPHost != "" {
		mail = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.ResetURL)
	}

	// Support a lightweight migrate command: `./docmon migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		logger.Info().Msg("migration and seeding completed")
		return
	}

	initDB()

	r := gin.Default()

	setupRoutes(r)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
