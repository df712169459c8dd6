package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/yigit/classjournal/internal/app/models"
)

// Task type constants
const (
	TaskEmailNotification = "notification:email"
	TaskPushNotification  = "notification:push"
	TaskDigest            = "notification:digest"
)

// NotificationPayload addresses one persisted notification
type NotificationPayload struct {
	NotificationID int64 `json:"notification_id"`
}

// DigestPayload selects which digest buffers a run drains
type DigestPayload struct {
	Frequency models.EmailFrequency `json:"frequency"`
}

// NewClient creates an asynq client for enqueueing notification tasks
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewEmailTask creates an immediate email delivery task.
// It is retried up to 5 times and retained for 24 hours after completion.
func NewEmailTask(notificationID int64) (*asynq.Task, error) {
	return newNotificationTask(TaskEmailNotification, notificationID)
}

// NewPushTask creates a push delivery task
func NewPushTask(notificationID int64) (*asynq.Task, error) {
	return newNotificationTask(TaskPushNotification, notificationID)
}

func newNotificationTask(taskType string, notificationID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(NotificationPayload{NotificationID: notificationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		taskType,
		payload,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewDigestTask creates the periodic digest run for one frequency
func NewDigestTask(frequency models.EmailFrequency) (*asynq.Task, error) {
	payload, err := json.Marshal(DigestPayload{Frequency: frequency})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskDigest,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		// Prevent a duplicate run if two schedulers fire
		asynq.Unique(time.Hour),
	), nil
}
