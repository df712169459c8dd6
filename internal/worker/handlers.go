package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/email"
	"github.com/yigit/classjournal/internal/pkg/push"
)

const pushTitle = "Class Journal"

type notificationReader interface {
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type deliveryMarker interface {
	MarkNotificationSent(ctx context.Context, journalID, studentID int64, issuedAt time.Time) error
}

type pushSender interface {
	Send(ctx context.Context, msg push.Message) error
}

// DigestSource is the worker side of the digest buffers
type DigestSource interface {
	PendingUsers(ctx context.Context, frequency string) ([]int64, error)
	Drain(ctx context.Context, frequency string, userID int64) ([][]byte, error)
	Restore(ctx context.Context, frequency string, userID int64, items [][]byte) error
}

// Handlers processes the notification tasks
type Handlers struct {
	notifications notificationReader
	users         userReader
	tags          deliveryMarker
	mailer        email.EmailService
	push          pushSender
	digests       DigestSource
	logger        zerolog.Logger
}

// NewHandlers creates the task handlers
func NewHandlers(
	notifications notificationReader,
	users userReader,
	tags deliveryMarker,
	mailer email.EmailService,
	pusher pushSender,
	digests DigestSource,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		notifications: notifications,
		users:         users,
		tags:          tags,
		mailer:        mailer,
		push:          pusher,
		digests:       digests,
		logger:        logger,
	}
}

// Register mounts every handler on mux
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskEmailNotification, h.HandleEmail)
	mux.HandleFunc(TaskPushNotification, h.HandlePush)
	mux.HandleFunc(TaskDigest, h.HandleDigest)
}

// load decodes a notification payload and fetches the notification and its recipient
func (h *Handlers) load(ctx context.Context, task *asynq.Task) (*models.Notification, *models.User, error) {
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.NotificationID <= 0 {
		return nil, nil, fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}

	n, err := h.notifications.GetByID(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			h.logger.Error().Int64("notificationID", payload.NotificationID).Msg("Notification not found")
			return nil, nil, fmt.Errorf("notification not found: %w", asynq.SkipRetry)
		}
		return nil, nil, fmt.Errorf("failed to fetch notification: %w", err)
	}

	user, err := h.users.GetByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, nil, fmt.Errorf("recipient %d not found: %w", n.UserID, asynq.SkipRetry)
		}
		return nil, nil, fmt.Errorf("failed to fetch recipient: %w", err)
	}
	return n, user, nil
}

// HandleEmail sends one notification email
func (h *Handlers) HandleEmail(ctx context.Context, task *asynq.Task) error {
	n, user, err := h.load(ctx, task)
	if err != nil {
		return err
	}
	if user.Email == nil || *user.Email == "" {
		h.logger.Info().Int64("userID", user.ID).Int64("notificationID", n.ID).Msg("Recipient has no email address, skipping")
		return nil
	}

	if err := h.mailer.SendNotification(ctx, email.Recipient{Email: *user.Email, Username: user.Username}, DigestItem(*n)); err != nil {
		return fmt.Errorf("email delivery failed: %w", err)
	}

	h.logger.Info().Int64("notificationID", n.ID).Int64("userID", user.ID).Msg("Notification email sent")
	h.markSent(ctx, string(n.Type), n.JournalID, n.UserID, n.CreatedAt)
	return nil
}

// HandlePush posts one notification to the push gateway
func (h *Handlers) HandlePush(ctx context.Context, task *asynq.Task) error {
	n, _, err := h.load(ctx, task)
	if err != nil {
		return err
	}

	err = h.push.Send(ctx, push.Message{
		UserID:         n.UserID,
		NotificationID: n.ID,
		JournalID:      n.JournalID,
		Type:           string(n.Type),
		Title:          pushTitle,
		Body:           n.Message,
	})
	if err != nil {
		if errors.Is(err, push.ErrNotConfigured) {
			return fmt.Errorf("push delivery: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("push delivery failed: %w", err)
	}

	h.logger.Info().Int64("notificationID", n.ID).Int64("userID", n.UserID).Msg("Push notification sent")
	h.markSent(ctx, string(n.Type), n.JournalID, n.UserID, n.CreatedAt)
	return nil
}

// HandleDigest sends one email per user with buffered items for the frequency.
// A failed send puts the user's items back so the retry picks them up.
func (h *Handlers) HandleDigest(ctx context.Context, task *asynq.Task) error {
	var payload DigestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || !payload.Frequency.IsDigest() {
		return fmt.Errorf("invalid digest payload: %w", asynq.SkipRetry)
	}
	frequency := string(payload.Frequency)

	userIDs, err := h.digests.PendingUsers(ctx, frequency)
	if err != nil {
		return err
	}

	var firstErr error
	sent := 0
	for _, userID := range userIDs {
		if err := h.sendDigest(ctx, frequency, userID); err != nil {
			h.logger.Error().Err(err).Int64("userID", userID).Str("frequency", frequency).Msg("Digest delivery failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	h.logger.Info().Str("frequency", frequency).Int("users", len(userIDs)).Int("sent", sent).Msg("Digest run completed")
	return firstErr
}

func (h *Handlers) sendDigest(ctx context.Context, frequency string, userID int64) error {
	raw, err := h.digests.Drain(ctx, frequency, userID)
	if err != nil || len(raw) == 0 {
		return err
	}

	items := make([]email.Item, 0, len(raw))
	for _, r := range raw {
		var item email.Item
		if err := json.Unmarshal(r, &item); err != nil {
			h.logger.Warn().Err(err).Int64("userID", userID).Msg("Discarding malformed digest item")
			continue
		}
		items = append(items, item)
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			h.logger.Warn().Int64("userID", userID).Msg("Digest recipient no longer exists, dropping items")
			return nil
		}
		return h.restore(ctx, frequency, userID, raw, err)
	}
	if user.Email == nil || *user.Email == "" {
		h.logger.Info().Int64("userID", userID).Msg("Digest recipient has no email address, dropping items")
		return nil
	}

	if err := h.mailer.SendDigest(ctx, email.Recipient{Email: *user.Email, Username: user.Username}, frequency, items); err != nil {
		return h.restore(ctx, frequency, userID, raw, err)
	}

	for _, item := range items {
		h.markSent(ctx, item.Type, item.JournalID, userID, item.CreatedAt)
	}
	return nil
}

func (h *Handlers) restore(ctx context.Context, frequency string, userID int64, raw [][]byte, cause error) error {
	if err := h.digests.Restore(ctx, frequency, userID, raw); err != nil {
		h.logger.Error().Err(err).Int64("userID", userID).Int("items", len(raw)).Msg("Failed to restore digest items")
	}
	return cause
}

// markSent records delivery of a publish notification on the student's tag
func (h *Handlers) markSent(ctx context.Context, notificationType string, journalID, userID int64, issuedAt time.Time) {
	if notificationType != string(models.NotificationJournalPublish) {
		return
	}
	if err := h.tags.MarkNotificationSent(ctx, journalID, userID, issuedAt); err != nil {
		h.logger.Error().Err(err).Int64("journalID", journalID).Int64("studentID", userID).Msg("Failed to mark notification sent")
	}
}
