package dto

import (
	"time"

	"github.com/yigit/classjournal/internal/app/models"
)

// CreateJournalRequest represents the fields accepted when creating a journal
type CreateJournalRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=100" example:"Art Class"`
	Description string     `json:"description" validate:"required" example:"Watercolour basics"`
	StudentIDs  []int64    `json:"studentIds" validate:"dive,gt=0" example:"1,2"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// UpdateJournalRequest carries a partial update. Only fields present in the request are applied.
// An explicit null publishedAt moves an unpublished journal back to draft, and an explicit
// empty studentIds list removes every tag.
type UpdateJournalRequest struct {
	Title               Optional[string]     `json:"title" swaggertype:"string"`
	Description         Optional[string]     `json:"description" swaggertype:"string"`
	StudentIDs          Optional[[]int64]    `json:"studentIds" swaggertype:"array,integer"`
	PublishedAt         Optional[*time.Time] `json:"publishedAt" swaggertype:"string"`
	RemoveAttachmentIDs []int64              `json:"removeAttachmentIds,omitempty"`
}

// HasContentChange reports whether the update touches fields students can see
func (r *UpdateJournalRequest) HasContentChange() bool {
	return r.Title.Set || r.Description.Set
}

// PublishJournalRequest represents the optional body of the publish action
type PublishJournalRequest struct {
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// AttachmentResponse exposes an attachment without its MIME type or size
type AttachmentResponse struct {
	ID       int64                 `json:"id" example:"10"`
	Type     models.AttachmentKind `json:"type" example:"image"`
	URL      string                `json:"url" example:"http://localhost:8080/uploads/9b1d.png"`
	Filename string                `json:"filename" example:"drawing.png"`
}

// StudentSummary is a tagged student as embedded in a journal
type StudentSummary struct {
	ID       int64           `json:"id" example:"2"`
	Username string          `json:"username" example:"student1"`
	Role     models.RoleType `json:"role" example:"student"`
}

// TeacherSummary is the owning teacher as embedded in a journal
type TeacherSummary struct {
	ID       int64  `json:"id" example:"1"`
	Username string `json:"username" example:"teacher1"`
}

// JournalResponse is a fully materialized journal. Status is evaluated at response
// time, IsPublished is the snapshot stored at the last write.
type JournalResponse struct {
	ID             int64                   `json:"id"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description"`
	TeacherID      int64                   `json:"teacherId"`
	PublishedAt    *time.Time              `json:"publishedAt"`
	IsPublished    bool                    `json:"isPublished"`
	Status         models.PublicationState `json:"status" example:"PUBLISHED"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	Teacher        *TeacherSummary         `json:"teacher,omitempty"`
	TaggedStudents []StudentSummary        `json:"taggedStudents"`
	Attachments    []AttachmentResponse    `json:"attachments"`
}

// JournalFeedResponse is one page of the requester's feed
type JournalFeedResponse struct {
	Journals   []JournalResponse `json:"journals"`
	Pagination PaginationInfo    `json:"pagination"`
}

// TagStateResponse shows a teacher how far delivery and reading got for one student
type TagStateResponse struct {
	StudentID        int64     `json:"studentId"`
	Username         string    `json:"username"`
	HasViewedJournal bool      `json:"hasViewedJournal"`
	NotificationSent bool      `json:"notificationSent"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewAttachmentResponse converts an attachment model
func NewAttachmentResponse(a models.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:       a.ID,
		Type:     a.Kind,
		URL:      a.URL,
		Filename: a.Filename,
	}
}

// NewTagStateResponse converts a tag state model
func NewTagStateResponse(s models.TagState) TagStateResponse {
	return TagStateResponse{
		StudentID:        s.StudentID,
		Username:         s.Username,
		HasViewedJournal: s.HasViewedJournal,
		NotificationSent: s.NotificationSent,
		UpdatedAt:        s.UpdatedAt,
	}
}
