package models

import "time"

// NotificationType names the event a notification reports
type NotificationType string

const (
	NotificationJournalTag     NotificationType = "JOURNAL_TAG"
	NotificationJournalPublish NotificationType = "JOURNAL_PUBLISH"
	NotificationJournalUpdate  NotificationType = "JOURNAL_UPDATE"
)

// EmailFrequency controls whether email is sent per event or batched
type EmailFrequency string

const (
	EmailImmediate    EmailFrequency = "IMMEDIATE"
	EmailDailyDigest  EmailFrequency = "DAILY_DIGEST"
	EmailWeeklyDigest EmailFrequency = "WEEKLY_DIGEST"
)

// Valid reports whether f is a known frequency
func (f EmailFrequency) Valid() bool {
	switch f {
	case EmailImmediate, EmailDailyDigest, EmailWeeklyDigest:
		return true
	}
	return false
}

// IsDigest reports whether emails are batched
func (f EmailFrequency) IsDigest() bool {
	return f == EmailDailyDigest || f == EmailWeeklyDigest
}

// Notification is the persisted record of one event for one recipient
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	JournalID int64            `json:"journalId"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NotificationPreference holds a user's channel switches. A user without a stored
// row gets DefaultNotificationPreference.
type NotificationPreference struct {
	UserID         int64
	EmailEnabled   bool
	InAppEnabled   bool
	PushEnabled    bool
	EmailFrequency EmailFrequency
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultNotificationPreference returns the preferences a new user starts with
func DefaultNotificationPreference(userID int64) NotificationPreference {
	return NotificationPreference{
		UserID:         userID,
		EmailEnabled:   true,
		InAppEnabled:   true,
		PushEnabled:    false,
		EmailFrequency: EmailImmediate,
	}
}
