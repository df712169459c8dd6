package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/helpers"
	"github.com/yigit/classjournal/internal/pkg/metrics"
	"github.com/yigit/classjournal/internal/pkg/observability"
)

// Channel is a notification delivery path
type Channel string

const (
	ChannelInApp       Channel = "in_app"
	ChannelEmail       Channel = "email"
	ChannelEmailDigest Channel = "email_digest"
	ChannelPush        Channel = "push"
)

// Intent is one gated delivery of a notification
type Intent struct {
	Channel      Channel
	Frequency    models.EmailFrequency
	Notification models.Notification
}

// PlanDelivery applies a user's preferences to a notification. The in-app, email and
// push gates are independent; email goes to the digest path unless the frequency is IMMEDIATE.
func PlanDelivery(pref models.NotificationPreference, n models.Notification) []Intent {
	var intents []Intent
	if pref.InAppEnabled {
		intents = append(intents, Intent{Channel: ChannelInApp, Notification: n})
	}
	if pref.EmailEnabled {
		if pref.EmailFrequency.IsDigest() {
			intents = append(intents, Intent{Channel: ChannelEmailDigest, Frequency: pref.EmailFrequency, Notification: n})
		} else {
			intents = append(intents, Intent{Channel: ChannelEmail, Frequency: models.EmailImmediate, Notification: n})
		}
	}
	if pref.PushEnabled {
		intents = append(intents, Intent{Channel: ChannelPush, Notification: n})
	}
	return intents
}

// Dispatcher hands intents to the transports. Implementations must not block on delivery.
type Dispatcher interface {
	DispatchInApp(ctx context.Context, n models.Notification) error
	EnqueueEmail(ctx context.Context, n models.Notification) error
	BufferDigest(ctx context.Context, frequency models.EmailFrequency, n models.Notification) error
	EnqueuePush(ctx context.Context, n models.Notification) error
}

// ErrChannelDisabled is returned by a Dispatcher whose transport is not configured
var ErrChannelDisabled = errors.New("notification channel not configured")

// Notifier is the part of the notification service journal operations depend on
type Notifier interface {
	Notify(ctx context.Context, kind models.NotificationType, journal models.Journal, studentIDs []int64)
}

// NotificationService defines the interface for notification operations
type NotificationService interface {
	Notifier
	ListNotifications(ctx context.Context, userID int64, page, limit int) (*dto.NotificationConnection, error)
	GetPreferences(ctx context.Context, userID int64) (*dto.NotificationPreferenceResponse, error)
	UpdatePreferences(ctx context.Context, userID int64, req *dto.UpdateNotificationPreferencesRequest) (*dto.NotificationPreferenceResponse, error)
	MarkRead(ctx context.Context, id, userID int64) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (bool, error)
}

type notificationServiceImpl struct {
	notifications *repositories.NotificationRepository
	preferences   *repositories.PreferenceRepository
	tags          *repositories.TagRepository
	dispatcher    Dispatcher
	logger        zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repos *repositories.Repositories, dispatcher Dispatcher, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{
		notifications: repos.NotificationRepository,
		preferences:   repos.PreferenceRepository,
		tags:          repos.TagRepository,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// NotificationMessage is the text stored for a journal event
func NotificationMessage(kind models.NotificationType, title string) string {
	switch kind {
	case models.NotificationJournalPublish:
		return fmt.Sprintf("New journal published: %q", title)
	case models.NotificationJournalTag:
		return fmt.Sprintf("You were tagged in the journal %q", title)
	case models.NotificationJournalUpdate:
		return fmt.Sprintf("The journal %q was updated", title)
	default:
		return title
	}
}

// Notify persists one notification per student and dispatches it on every enabled
// channel. Failures are logged and never returned: the journal write that triggered
// the notification has already committed.
func (s *notificationServiceImpl) Notify(ctx context.Context, kind models.NotificationType, journal models.Journal, studentIDs []int64) {
	if len(studentIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	message := NotificationMessage(kind, journal.Title)
	for _, studentID := range studentIDs {
		n := models.Notification{UserID: studentID, JournalID: journal.ID, Type: kind, Message: message}
		if err := s.notifications.Create(ctx, &n); err != nil {
			s.logger.Error().Err(err).Int64("studentID", studentID).Int64("journalID", journal.ID).Msg("Failed to persist notification")
			continue
		}

		pref, err := s.preferences.GetOrCreate(ctx, studentID)
		if err != nil {
			s.logger.Error().Err(err).Int64("studentID", studentID).Msg("Failed to load notification preferences")
			continue
		}

		for _, intent := range PlanDelivery(*pref, n) {
			s.dispatch(ctx, intent)
		}
	}
}

func (s *notificationServiceImpl) dispatch(ctx context.Context, intent Intent) {
	n := intent.Notification
	var err error
	switch intent.Channel {
	case ChannelInApp:
		err = s.dispatcher.DispatchInApp(ctx, n)
	case ChannelEmail:
		err = s.dispatcher.EnqueueEmail(ctx, n)
	case ChannelEmailDigest:
		err = s.dispatcher.BufferDigest(ctx, intent.Frequency, n)
	case ChannelPush:
		err = s.dispatcher.EnqueuePush(ctx, n)
	}
	metrics.ObserveDispatch(string(intent.Channel), err)

	if err != nil {
		if errors.Is(err, ErrChannelDisabled) {
			s.logger.Debug().Str("channel", string(intent.Channel)).Int64("notificationID", n.ID).Msg("Channel disabled, notification not dispatched")
			return
		}
		terr := apperrors.NewTransportError(string(intent.Channel), err)
		s.logger.Warn().Err(terr).Int64("notificationID", n.ID).Int64("userID", n.UserID).Msg("Notification dispatch failed")
		observability.CaptureWithTags(terr, map[string]string{"channel": string(intent.Channel)})
		return
	}

	// In-app delivery is complete once published; queued channels confirm from the worker
	if intent.Channel == ChannelInApp && n.Type == models.NotificationJournalPublish {
		if err := s.tags.MarkNotificationSent(ctx, n.JournalID, n.UserID, n.CreatedAt); err != nil {
			s.logger.Error().Err(err).Int64("journalID", n.JournalID).Int64("studentID", n.UserID).Msg("Failed to mark notification sent")
		}
	}
}

// ListNotifications returns one page of the user's notifications, newest first
func (s *notificationServiceImpl) ListNotifications(ctx context.Context, userID int64, page, limit int) (*dto.NotificationConnection, error) {
	page, limit = helpers.NormalizePage(page, limit)
	offset, size := helpers.CalculateOffsetLimit(page, limit)

	items, total, err := s.notifications.ListForUser(ctx, userID, offset, size)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	conn := dto.NewNotificationConnection(items, page, int(offset), total)
	return &conn, nil
}

// GetPreferences returns the user's preferences, creating the defaults on first access
func (s *notificationServiceImpl) GetPreferences(ctx context.Context, userID int64) (*dto.NotificationPreferenceResponse, error) {
	pref, err := s.preferences.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading notification preferences: %w", err)
	}
	resp := dto.NewNotificationPreferenceResponse(*pref)
	return &resp, nil
}

// UpdatePreferences applies the switches present in req
func (s *notificationServiceImpl) UpdatePreferences(ctx context.Context, userID int64, req *dto.UpdateNotificationPreferencesRequest) (*dto.NotificationPreferenceResponse, error) {
	if req.EmailFrequency.Set && !req.EmailFrequency.Value.Valid() {
		return nil, apperrors.NewFieldValidationError("emailFrequency", "emailFrequency must be one of: IMMEDIATE, DAILY_DIGEST, WEEKLY_DIGEST")
	}

	pref, err := s.preferences.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading notification preferences: %w", err)
	}

	if req.EmailEnabled.Set {
		pref.EmailEnabled = req.EmailEnabled.Value
	}
	if req.InAppEnabled.Set {
		pref.InAppEnabled = req.InAppEnabled.Value
	}
	if req.PushEnabled.Set {
		pref.PushEnabled = req.PushEnabled.Value
	}
	if req.EmailFrequency.Set {
		pref.EmailFrequency = req.EmailFrequency.Value
	}

	if err := s.preferences.Update(ctx, pref); err != nil {
		return nil, fmt.Errorf("error updating notification preferences: %w", err)
	}
	resp := dto.NewNotificationPreferenceResponse(*pref)
	return &resp, nil
}

// MarkRead marks one of the user's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID int64) (*models.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewNotFoundOrForbiddenError("notification not found")
		}
		return nil, fmt.Errorf("error marking notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every notification of the user as read
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return false, fmt.Errorf("error marking notifications read: %w", err)
	}
	return true, nil
}
