package services

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

func TestEvaluatePublication(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		at   *time.Time
		want models.PublicationState
	}{
		{"nil is draft", nil, models.StateDraft},
		{"future is scheduled", &future, models.StateScheduled},
		{"past is published", &past, models.StatePublished},
		{"now is published", &now, models.StatePublished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluatePublication(tt.at, now); got != tt.want {
				t.Errorf("EvaluatePublication() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolvePublication_Create(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)

	change, err := resolvePublication(nil, nil, now, false)
	if err != nil || change.IsPublished || change.EntersPublished {
		t.Errorf("draft create: %+v, %v", change, err)
	}

	change, err = resolvePublication(nil, &future, now, false)
	if err != nil || change.IsPublished || change.EntersPublished {
		t.Errorf("scheduled create: %+v, %v", change, err)
	}

	change, err = resolvePublication(nil, &now, now, false)
	if err != nil || !change.IsPublished || !change.EntersPublished {
		t.Errorf("published create: %+v, %v", change, err)
	}
}

func TestResolvePublication_Update(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("draft to scheduled", func(t *testing.T) {
		current := &models.Journal{}
		change, err := resolvePublication(current, &future, now, false)
		if err != nil || change.EntersPublished || *change.PublishedAt != future {
			t.Errorf("got %+v, %v", change, err)
		}
	})

	t.Run("due scheduled journal enters published", func(t *testing.T) {
		current := &models.Journal{PublishedAt: &past, IsPublished: false}
		change, err := resolvePublication(current, &past, now, false)
		if err != nil || !change.IsPublished || !change.EntersPublished {
			t.Errorf("got %+v, %v", change, err)
		}
	})

	t.Run("published update does not re-enter", func(t *testing.T) {
		current := &models.Journal{PublishedAt: &past, IsPublished: true}
		change, err := resolvePublication(current, &past, now, false)
		if err != nil || !change.IsPublished || change.EntersPublished {
			t.Errorf("got %+v, %v", change, err)
		}
	})

	t.Run("explicit publish re-enters", func(t *testing.T) {
		current := &models.Journal{PublishedAt: &past, IsPublished: true}
		change, err := resolvePublication(current, &now, now, true)
		if err != nil || !change.EntersPublished {
			t.Errorf("got %+v, %v", change, err)
		}
	})

	t.Run("published cannot be rescheduled", func(t *testing.T) {
		current := &models.Journal{PublishedAt: &past, IsPublished: true}
		_, err := resolvePublication(current, &future, now, false)
		if !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("live journal with stale snapshot cannot be unpublished", func(t *testing.T) {
		current := &models.Journal{PublishedAt: &past, IsPublished: false}
		_, err := resolvePublication(current, nil, now, false)
		if !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}
