package services

import (
	"time"

	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// EvaluatePublication returns the state a journal with the given publish time is in at now.
// Create, update and publish all derive the stored snapshot from this function.
func EvaluatePublication(publishedAt *time.Time, now time.Time) models.PublicationState {
	switch {
	case publishedAt == nil:
		return models.StateDraft
	case publishedAt.After(now):
		return models.StateScheduled
	default:
		return models.StatePublished
	}
}

// publicationChange is the result of applying a publish time to a journal
type publicationChange struct {
	PublishedAt *time.Time
	IsPublished bool
	// EntersPublished means tags must be reset and the publish fan-out run
	EntersPublished bool
}

// resolvePublication applies a requested publish time to the current journal.
// current is nil on create. explicit marks the dedicated publish action, which
// re-enters Published even when the journal already is.
func resolvePublication(current *models.Journal, requested *time.Time, now time.Time, explicit bool) (publicationChange, error) {
	state := EvaluatePublication(requested, now)
	isPublished := state == models.StatePublished

	wasPublished := false
	alreadyLive := false
	if current != nil {
		wasPublished = current.IsPublished
		alreadyLive = current.IsPublished || EvaluatePublication(current.PublishedAt, now) == models.StatePublished
	}

	if alreadyLive && !isPublished {
		return publicationChange{}, apperrors.NewFieldValidationError("publishedAt", "a published journal cannot be unpublished or rescheduled")
	}

	return publicationChange{
		PublishedAt:     requested,
		IsPublished:     isPublished,
		EntersPublished: isPublished && (!wasPublished || explicit),
	}, nil
}
