// Command worker delivers queued notifications (email, push) and flushes the
// daily and weekly email digests on schedule.
package main

import (
	"context"
	"os"

	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/bootstrap"
	"github.com/yigit/classjournal/internal/db"
	"github.com/yigit/classjournal/internal/pkg/email"
	"github.com/yigit/classjournal/internal/pkg/logger"
	"github.com/yigit/classjournal/internal/pkg/observability"
	"github.com/yigit/classjournal/internal/pkg/push"
	"github.com/yigit/classjournal/internal/pkg/redisbus"
	"github.com/yigit/classjournal/internal/worker"
)

func main() {
	if err := run(); err != nil {
		logger.Error().Err(err).Msg("Worker stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("Worker finished gracefully.")
}

func run() error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}
	lgr = lgr.With().Str("process", "worker").Logger()

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, "classjournal-worker")
	if err != nil {
		lgr.Warn().Err(err).Msg("Sentry initialization failed, continuing without error reporting")
	}
	defer flush()

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	redisClient, err := redisbus.Connect(context.Background(), cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if cfg.SMTP.Host == "" {
		lgr.Warn().Msg("SMTP host not configured, email tasks will fail until it is set")
	}
	mailer := email.NewEmailService(email.SMTPConfig{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		Username:      cfg.SMTP.Username,
		Password:      cfg.SMTP.Password,
		From:          cfg.SMTP.From,
		SkipTLSVerify: cfg.SMTP.SkipTLSVerify,
		BaseURL:       cfg.PublicBaseURL(),
	}, lgr)

	repos := repositories.NewRepositories(database.Pool)
	handlers := worker.NewHandlers(
		repos.NotificationRepository,
		repos.UserRepository,
		repos.TagRepository,
		mailer,
		push.NewClient(cfg.Push.WebhookURL),
		redisbus.NewDigestStore(redisClient),
		lgr,
	)

	srv, mux, err := worker.NewServer(cfg, handlers, lgr)
	if err != nil {
		return err
	}

	stopScheduler, err := worker.StartScheduler(cfg, lgr)
	if err != nil {
		return err
	}
	defer stopScheduler()

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks
	return srv.Run(mux)
}
