package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/db"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/dberrors"
	"github.com/yigit/classjournal/internal/pkg/export"
	"github.com/yigit/classjournal/internal/pkg/filestorage"
	"github.com/yigit/classjournal/internal/pkg/metrics"
	"github.com/yigit/classjournal/internal/pkg/validation"
)

const journalNotFoundMessage = "journal not found or you do not have permission to modify it"

// JournalService defines the teacher-side journal operations. Every mutation runs
// in one transaction together with its tags and attachment rows.
type JournalService interface {
	CreateJournal(ctx context.Context, teacherID int64, req *dto.CreateJournalRequest, files []*multipart.FileHeader) (*dto.JournalResponse, error)
	UpdateJournal(ctx context.Context, journalID, teacherID int64, req *dto.UpdateJournalRequest, files []*multipart.FileHeader) (*dto.JournalResponse, error)
	DeleteJournal(ctx context.Context, journalID, teacherID int64) error
	PublishJournal(ctx context.Context, journalID, teacherID int64, req *dto.PublishJournalRequest) (*dto.JournalResponse, error)
	ListTagStates(ctx context.Context, journalID, teacherID int64) ([]dto.TagStateResponse, error)
	ExportTagStates(ctx context.Context, journalID, teacherID int64) (filename string, data []byte, err error)
}

type journalServiceImpl struct {
	tx        db.TxRunner
	repos     *repositories.Repositories
	assembler journalAssembler
	blobs     filestorage.BlobStore
	notifier  Notifier
	now       func() time.Time
	logger    zerolog.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(
	tx db.TxRunner,
	repos *repositories.Repositories,
	blobs filestorage.BlobStore,
	notifier Notifier,
	logger zerolog.Logger,
) JournalService {
	return &journalServiceImpl{
		tx:        tx,
		repos:     repos,
		assembler: newJournalAssembler(repos),
		blobs:     blobs,
		notifier:  notifier,
		now:       time.Now,
		logger:    logger,
	}
}

// txRepos is the set of repositories bound to one transaction
type txRepos struct {
	users       *repositories.UserRepository
	journals    *repositories.JournalRepository
	tags        *repositories.TagRepository
	attachments *repositories.AttachmentRepository
	assembler   journalAssembler
}

func (s *journalServiceImpl) bind(tx pgx.Tx) txRepos {
	return txRepos{
		users:       s.repos.UserRepository.WithTx(tx),
		journals:    s.repos.JournalRepository.WithTx(tx),
		tags:        s.repos.TagRepository.WithTx(tx),
		attachments: s.repos.AttachmentRepository.WithTx(tx),
		assembler:   s.assembler.withTx(tx),
	}
}

// CreateJournal creates a journal with its tags and attachments
func (s *journalServiceImpl) CreateJournal(ctx context.Context, teacherID int64, req *dto.CreateJournalRequest, files []*multipart.FileHeader) (resp *dto.JournalResponse, err error) {
	defer func() { metrics.ObserveJournalOp("create", err) }()

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if err := validation.Title(title); err != nil {
		return nil, err
	}
	if err := validation.Description(description); err != nil {
		return nil, err
	}
	if err := validation.Attachments(files); err != nil {
		return nil, err
	}
	if _, err := normalizeStudentIDs(req.StudentIDs); err != nil {
		return nil, err
	}

	now := s.now()
	change, err := resolvePublication(nil, req.PublishedAt, now, false)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeBlobs(ctx, files)
	if err != nil {
		return nil, err
	}

	journal := models.Journal{
		Title:       title,
		Description: description,
		TeacherID:   teacherID,
		PublishedAt: change.PublishedAt,
		IsPublished: change.IsPublished,
	}
	var studentIDs []int64

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		r := s.bind(tx)

		ids, err := resolveStudents(ctx, r.users, req.StudentIDs)
		if err != nil {
			return err
		}
		studentIDs = ids

		if err := r.journals.Create(ctx, &journal); err != nil {
			return err
		}
		if err := r.tags.Replace(ctx, journal.ID, ids); err != nil {
			return err
		}
		if err := r.attachments.CreateBatch(ctx, journal.ID, stored); err != nil {
			return err
		}

		resp, err = r.assembler.assembleOne(ctx, journal, now)
		return err
	})
	if err != nil {
		s.discardBlobs(ctx, locatorsOf(stored))
		return nil, dberrors.Classify(err)
	}

	s.logger.Info().Int64("journalID", journal.ID).Int64("teacherID", teacherID).
		Str("status", string(resp.Status)).Int("students", len(studentIDs)).Msg("Journal created")

	if change.EntersPublished {
		s.notifier.Notify(ctx, models.NotificationJournalPublish, journal, studentIDs)
	}
	return resp, nil
}

// UpdateJournal applies the fields present in req. New files are appended as attachments.
func (s *journalServiceImpl) UpdateJournal(ctx context.Context, journalID, teacherID int64, req *dto.UpdateJournalRequest, files []*multipart.FileHeader) (resp *dto.JournalResponse, err error) {
	defer func() { metrics.ObserveJournalOp("update", err) }()

	if req.Title.Set {
		req.Title.Value = strings.TrimSpace(req.Title.Value)
		if err := validation.Title(req.Title.Value); err != nil {
			return nil, err
		}
	}
	if req.Description.Set {
		req.Description.Value = strings.TrimSpace(req.Description.Value)
		if err := validation.Description(req.Description.Value); err != nil {
			return nil, err
		}
	}
	if req.StudentIDs.Set {
		if _, err := normalizeStudentIDs(req.StudentIDs.Value); err != nil {
			return nil, err
		}
	}
	if err := validation.Attachments(files); err != nil {
		return nil, err
	}

	stored, err := s.storeBlobs(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		journal       *models.Journal
		change        publicationChange
		wasLive       bool
		prevStudents  []int64
		finalStudents []int64
		removed       []string
	)

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		r := s.bind(tx)

		j, err := r.journals.LockForTeacher(ctx, journalID, teacherID)
		if err != nil {
			return notFoundOr(err)
		}
		journal = j
		wasLive = EvaluatePublication(j.PublishedAt, now) == models.StatePublished

		if req.Title.Set {
			j.Title = req.Title.Value
		}
		if req.Description.Set {
			j.Description = req.Description.Value
		}

		requested := j.PublishedAt
		if req.PublishedAt.Set {
			requested = req.PublishedAt.Value
		}
		change, err = resolvePublication(j, requested, now, false)
		if err != nil {
			return err
		}
		j.PublishedAt, j.IsPublished = change.PublishedAt, change.IsPublished

		if err := r.journals.Update(ctx, j); err != nil {
			return err
		}

		prevStudents, err = r.tags.ListStudentIDs(ctx, j.ID)
		if err != nil {
			return err
		}
		finalStudents = prevStudents
		if req.StudentIDs.Set {
			ids, err := resolveStudents(ctx, r.users, req.StudentIDs.Value)
			if err != nil {
				return err
			}
			if err := r.tags.Replace(ctx, j.ID, ids); err != nil {
				return err
			}
			finalStudents = ids
		}
		if change.EntersPublished {
			if _, err := r.tags.ResetNotificationSent(ctx, j.ID); err != nil {
				return err
			}
		}

		removed, err = r.attachments.DeleteByIDs(ctx, j.ID, req.RemoveAttachmentIDs)
		if err != nil {
			return err
		}
		if err := r.attachments.CreateBatch(ctx, j.ID, stored); err != nil {
			return err
		}

		resp, err = r.assembler.assembleOne(ctx, *j, now)
		return err
	})
	if err != nil {
		s.discardBlobs(ctx, locatorsOf(stored))
		return nil, dberrors.Classify(err)
	}

	s.discardBlobs(ctx, removed)
	s.logger.Info().Int64("journalID", journalID).Int64("teacherID", teacherID).Str("status", string(resp.Status)).Msg("Journal updated")

	switch {
	case change.EntersPublished:
		s.notifier.Notify(ctx, models.NotificationJournalPublish, *journal, finalStudents)
	case wasLive:
		added := addedStudents(prevStudents, finalStudents)
		s.notifier.Notify(ctx, models.NotificationJournalTag, *journal, added)
		if req.HasContentChange() || len(stored) > 0 || len(removed) > 0 {
			s.notifier.Notify(ctx, models.NotificationJournalUpdate, *journal, withoutStudents(finalStudents, added))
		}
	}
	return resp, nil
}

// DeleteJournal removes a journal with its attachments and tags. Blobs are removed
// after commit; a blob that cannot be deleted is logged and skipped.
func (s *journalServiceImpl) DeleteJournal(ctx context.Context, journalID, teacherID int64) (err error) {
	defer func() { metrics.ObserveJournalOp("delete", err) }()

	var locators []string
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		r := s.bind(tx)

		if _, err := r.journals.LockForTeacher(ctx, journalID, teacherID); err != nil {
			return notFoundOr(err)
		}

		var err error
		locators, err = r.attachments.DeleteForJournal(ctx, journalID)
		if err != nil {
			return err
		}
		if err := r.tags.Replace(ctx, journalID, nil); err != nil {
			return err
		}
		return notFoundOr(r.journals.Delete(ctx, journalID))
	})
	if err != nil {
		return dberrors.Classify(err)
	}

	s.discardBlobs(ctx, locators)
	s.logger.Info().Int64("journalID", journalID).Int64("teacherID", teacherID).Int("attachments", len(locators)).Msg("Journal deleted")
	return nil
}

// PublishJournal publishes a journal now, or schedules it when req carries a future time
func (s *journalServiceImpl) PublishJournal(ctx context.Context, journalID, teacherID int64, req *dto.PublishJournalRequest) (resp *dto.JournalResponse, err error) {
	defer func() { metrics.ObserveJournalOp("publish", err) }()

	now := s.now()
	requested := &now
	if req != nil && req.PublishedAt != nil {
		requested = req.PublishedAt
	}

	var (
		journal  *models.Journal
		change   publicationChange
		students []int64
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		r := s.bind(tx)

		j, err := r.journals.LockForTeacher(ctx, journalID, teacherID)
		if err != nil {
			return notFoundOr(err)
		}
		journal = j

		change, err = resolvePublication(j, requested, now, true)
		if err != nil {
			return err
		}
		j.PublishedAt, j.IsPublished = change.PublishedAt, change.IsPublished
		if err := r.journals.Update(ctx, j); err != nil {
			return err
		}

		if change.EntersPublished {
			if _, err := r.tags.ResetNotificationSent(ctx, j.ID); err != nil {
				return err
			}
		}
		students, err = r.tags.ListStudentIDs(ctx, j.ID)
		if err != nil {
			return err
		}

		resp, err = r.assembler.assembleOne(ctx, *j, now)
		return err
	})
	if err != nil {
		return nil, dberrors.Classify(err)
	}

	s.logger.Info().Int64("journalID", journalID).Int64("teacherID", teacherID).Str("status", string(resp.Status)).Msg("Journal publish requested")

	if change.EntersPublished {
		s.notifier.Notify(ctx, models.NotificationJournalPublish, *journal, students)
	}
	return resp, nil
}

// ListTagStates returns read and delivery state per tagged student
func (s *journalServiceImpl) ListTagStates(ctx context.Context, journalID, teacherID int64) ([]dto.TagStateResponse, error) {
	_, states, err := s.tagStates(ctx, journalID, teacherID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TagStateResponse, 0, len(states))
	for _, st := range states {
		out = append(out, dto.NewTagStateResponse(st))
	}
	return out, nil
}

// ExportTagStates renders ListTagStates as an .xlsx workbook
func (s *journalServiceImpl) ExportTagStates(ctx context.Context, journalID, teacherID int64) (string, []byte, error) {
	journal, states, err := s.tagStates(ctx, journalID, teacherID)
	if err != nil {
		return "", nil, err
	}

	rows := make([]export.TagStateRow, 0, len(states))
	for _, st := range states {
		rows = append(rows, export.TagStateRow{
			StudentID:        st.StudentID,
			Username:         st.Username,
			HasViewedJournal: st.HasViewedJournal,
			NotificationSent: st.NotificationSent,
			UpdatedAt:        st.UpdatedAt,
		})
	}
	data, err := export.TagStatesWorkbook(journal.Title, rows)
	if err != nil {
		return "", nil, fmt.Errorf("error rendering tag export: %w", err)
	}
	return export.Filename(journal.ID, journal.Title), data, nil
}

func (s *journalServiceImpl) tagStates(ctx context.Context, journalID, teacherID int64) (*models.Journal, []models.TagState, error) {
	journal, err := s.repos.JournalRepository.GetForTeacher(ctx, journalID, teacherID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	states, err := s.repos.TagRepository.ListStates(ctx, journalID)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing tag states: %w", err)
	}
	return journal, states, nil
}

// storeBlobs uploads files before the transaction starts. On failure the blobs
// stored so far are removed again.
func (s *journalServiceImpl) storeBlobs(ctx context.Context, files []*multipart.FileHeader) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		blob, err := s.blobs.Put(ctx, fh)
		if err != nil {
			s.discardBlobs(ctx, locatorsOf(attachments))
			return nil, fmt.Errorf("error storing attachment %s: %w", fh.Filename, err)
		}
		mimeType := validation.AttachmentContentType(fh)
		attachments = append(attachments, models.Attachment{
			Kind:     models.AttachmentKindFromMIME(mimeType),
			Locator:  blob.Locator,
			URL:      blob.URL,
			Filename: fh.Filename,
			MimeType: mimeType,
			Size:     blob.Size,
		})
	}
	return attachments, nil
}

// discardBlobs deletes blobs best-effort, detached from the request's cancellation
func (s *journalServiceImpl) discardBlobs(ctx context.Context, locators []string) {
	if len(locators) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	for _, locator := range locators {
		if err := s.blobs.Delete(ctx, locator); err != nil {
			s.logger.Warn().Err(err).Str("locator", locator).Msg("Failed to delete attachment blob")
		}
	}
}

func locatorsOf(attachments []models.Attachment) []string {
	out := make([]string, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, a.Locator)
	}
	return out
}

func withoutStudents(ids, drop []int64) []int64 {
	if len(drop) == 0 {
		return ids
	}
	skip := make(map[int64]struct{}, len(drop))
	for _, id := range drop {
		skip[id] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// notFoundOr maps a repository miss to the uniform not-found-or-forbidden error
func notFoundOr(err error) error {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return apperrors.NewNotFoundOrForbiddenError(journalNotFoundMessage)
	}
	return err
}
