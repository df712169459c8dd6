package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/pkg/email"
)

// InAppPublisher delivers a JSON payload to a user's live subscriptions.
// Both the Redis broker and the in-process hub satisfy it.
type InAppPublisher interface {
	Publish(ctx context.Context, userID int64, payload []byte) error
}

// TaskEnqueuer is the part of *asynq.Client the dispatcher uses
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DigestBuffer stores items for the next digest run
type DigestBuffer interface {
	Append(ctx context.Context, frequency string, userID int64, item []byte) error
}

// DispatcherConfig selects the transports a Dispatcher uses. A nil transport, or a
// disabled channel, makes that channel report services.ErrChannelDisabled.
type DispatcherConfig struct {
	InApp        InAppPublisher
	Tasks        TaskEnqueuer
	Digests      DigestBuffer
	EmailEnabled bool
	PushEnabled  bool
}

// Dispatcher hands notifications to the live channel, the task queue and the digest buffers
type Dispatcher struct {
	cfg    DispatcherConfig
	logger zerolog.Logger
}

var _ services.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a new Dispatcher
func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, logger: logger}
}

// DispatchInApp publishes the notification to the user's subscriptions
func (d *Dispatcher) DispatchInApp(ctx context.Context, n models.Notification) error {
	if d.cfg.InApp == nil {
		return services.ErrChannelDisabled
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return d.cfg.InApp.Publish(ctx, n.UserID, payload)
}

// EnqueueEmail queues an immediate email
func (d *Dispatcher) EnqueueEmail(ctx context.Context, n models.Notification) error {
	if !d.cfg.EmailEnabled {
		return services.ErrChannelDisabled
	}
	task, err := NewEmailTask(n.ID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, n)
}

// BufferDigest stores the notification until the next digest run for frequency
func (d *Dispatcher) BufferDigest(ctx context.Context, frequency models.EmailFrequency, n models.Notification) error {
	if !d.cfg.EmailEnabled || d.cfg.Digests == nil {
		return services.ErrChannelDisabled
	}
	item, err := json.Marshal(DigestItem(n))
	if err != nil {
		return fmt.Errorf("failed to encode digest item: %w", err)
	}
	return d.cfg.Digests.Append(ctx, string(frequency), n.UserID, item)
}

// EnqueuePush queues a push delivery
func (d *Dispatcher) EnqueuePush(ctx context.Context, n models.Notification) error {
	if !d.cfg.PushEnabled {
		return services.ErrChannelDisabled
	}
	task, err := NewPushTask(n.ID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, n)
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, n models.Notification) error {
	if d.cfg.Tasks == nil {
		return services.ErrChannelDisabled
	}
	info, err := d.cfg.Tasks.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	d.logger.Debug().Str("task_id", info.ID).Str("type", task.Type()).Int64("notificationID", n.ID).Msg("Notification task enqueued")
	return nil
}

// DigestItem is the buffered form of a notification
func DigestItem(n models.Notification) email.Item {
	return email.Item{
		JournalID: n.JournalID,
		Type:      string(n.Type),
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}
