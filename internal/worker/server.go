package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/config"
	"github.com/yigit/classjournal/internal/pkg/helpers"
	"github.com/yigit/classjournal/internal/pkg/observability"
)

// NewServer builds the asynq server and a mux with every notification handler mounted
func NewServer(cfg *config.Config, handlers *Handlers, logger zerolog.Logger) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.Notifications.WorkerConcurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	logger.Info().Int("concurrency", cfg.Notifications.WorkerConcurrency).Msg("Worker starting")
	return srv, mux, nil
}

// makeErrorHandler logs every failed attempt and reports the final one to Sentry
func makeErrorHandler(logger zerolog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error().
			Err(err).
			Str("task_type", task.Type()).
			Int("retry_count", retried).
			Int("max_retry", maxRetry).
			Msg("Task execution failed")

		if retried >= maxRetry {
			observability.CaptureWithTags(err, map[string]string{"task_type": task.Type()})
		}
	}
}

// StartScheduler registers the daily and weekly digest runs and starts the scheduler.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger zerolog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: helpers.LoadLocation(cfg.Notifications.Timezone),
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	schedules := []struct {
		cron      string
		frequency models.EmailFrequency
	}{
		{cfg.Notifications.DailyDigestCron, models.EmailDailyDigest},
		{cfg.Notifications.WeeklyDigestCron, models.EmailWeeklyDigest},
	}
	for _, s := range schedules {
		if s.cron == "" {
			continue
		}
		task, err := NewDigestTask(s.frequency)
		if err != nil {
			return nil, err
		}
		entryID, err := scheduler.Register(s.cron, task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s schedule: %w", s.frequency, err)
		}
		logger.Info().Str("frequency", string(s.frequency)).Str("schedule", s.cron).Str("entry_id", entryID).Msg("Digest schedule registered")
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	logger.Info().Str("timezone", cfg.Notifications.Timezone).Msg("Scheduler started")

	return func() { scheduler.Shutdown() }, nil
}
