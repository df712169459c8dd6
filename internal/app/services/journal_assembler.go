package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/repositories"
)

// journalAssembler materializes journals with their teacher, tagged students and attachments
type journalAssembler struct {
	users       *repositories.UserRepository
	tags        *repositories.TagRepository
	attachments *repositories.AttachmentRepository
}

func newJournalAssembler(repos *repositories.Repositories) journalAssembler {
	return journalAssembler{
		users:       repos.UserRepository,
		tags:        repos.TagRepository,
		attachments: repos.AttachmentRepository,
	}
}

func (a journalAssembler) withTx(tx pgx.Tx) journalAssembler {
	return journalAssembler{
		users:       a.users.WithTx(tx),
		tags:        a.tags.WithTx(tx),
		attachments: a.attachments.WithTx(tx),
	}
}

// assemble builds responses in the order of journals. Status is evaluated at now.
func (a journalAssembler) assemble(ctx context.Context, journals []models.Journal, now time.Time) ([]dto.JournalResponse, error) {
	out := make([]dto.JournalResponse, 0, len(journals))
	if len(journals) == 0 {
		return out, nil
	}

	ids := make([]int64, len(journals))
	teacherIDs := make([]int64, 0, 1)
	seenTeacher := map[int64]bool{}
	for i, j := range journals {
		ids[i] = j.ID
		if !seenTeacher[j.TeacherID] {
			seenTeacher[j.TeacherID] = true
			teacherIDs = append(teacherIDs, j.TeacherID)
		}
	}

	teachers, err := a.users.GetSummaries(ctx, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("error loading teachers: %w", err)
	}
	students, err := a.tags.ListTaggedStudents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading tagged students: %w", err)
	}
	attachments, err := a.attachments.ListByJournalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading attachments: %w", err)
	}

	for _, j := range journals {
		resp := dto.JournalResponse{
			ID:             j.ID,
			Title:          j.Title,
			Description:    j.Description,
			TeacherID:      j.TeacherID,
			PublishedAt:    j.PublishedAt,
			IsPublished:    j.IsPublished,
			Status:         EvaluatePublication(j.PublishedAt, now),
			CreatedAt:      j.CreatedAt,
			UpdatedAt:      j.UpdatedAt,
			TaggedStudents: []dto.StudentSummary{},
			Attachments:    []dto.AttachmentResponse{},
		}
		if t, ok := teachers[j.TeacherID]; ok {
			resp.Teacher = &dto.TeacherSummary{ID: t.ID, Username: t.Username}
		}
		for _, s := range students[j.ID] {
			resp.TaggedStudents = append(resp.TaggedStudents, dto.StudentSummary{ID: s.ID, Username: s.Username, Role: s.Role})
		}
		for _, att := range attachments[j.ID] {
			resp.Attachments = append(resp.Attachments, dto.NewAttachmentResponse(att))
		}
		out = append(out, resp)
	}
	return out, nil
}

func (a journalAssembler) assembleOne(ctx context.Context, journal models.Journal, now time.Time) (*dto.JournalResponse, error) {
	out, err := a.assemble(ctx, []models.Journal{journal}, now)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}
