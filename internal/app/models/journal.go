package models

import (
	"strings"
	"time"
)

// PublicationState is the live state of a journal derived from its publish time
type PublicationState string

const (
	StateDraft     PublicationState = "DRAFT"
	StateScheduled PublicationState = "SCHEDULED"
	StatePublished PublicationState = "PUBLISHED"
)

// Journal is a teacher-authored entry. IsPublished is a snapshot taken at the last
// write; readers must evaluate PublishedAt against the current time.
type Journal struct {
	ID          int64
	Title       string
	Description string
	TeacherID   int64
	PublishedAt *time.Time
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AttachmentKind classifies an attachment by its media type
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentPDF   AttachmentKind = "pdf"
	AttachmentURL   AttachmentKind = "url"
)

// AttachmentKindFromMIME maps a MIME type to its attachment kind
func AttachmentKindFromMIME(mimeType string) AttachmentKind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mimeType, "video/"):
		return AttachmentVideo
	case mimeType == "application/pdf":
		return AttachmentPDF
	default:
		return AttachmentURL
	}
}

// Attachment is a blob reference owned by one journal
type Attachment struct {
	ID        int64
	JournalID int64
	Kind      AttachmentKind
	// Locator is the storage key used to delete the blob
	Locator   string
	URL       string
	Filename  string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}

// Tag links a student to a journal along with per-student delivery state
type Tag struct {
	JournalID        int64
	StudentID        int64
	HasViewedJournal bool
	NotificationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TagState is a tag joined with the student's username, as shown to the owning teacher
type TagState struct {
	StudentID        int64
	Username         string
	HasViewedJournal bool
	NotificationSent bool
	UpdatedAt        time.Time
}

// UserSummary is the public projection of a user embedded in journal responses
type UserSummary struct {
	ID       int64
	Username string
	Role     RoleType
}
