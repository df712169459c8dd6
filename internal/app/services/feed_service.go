package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/auth"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/db"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/helpers"
	"github.com/yigit/classjournal/internal/pkg/metrics"
)

// FeedService resolves which journals a requester may read
type FeedService interface {
	GetFeed(ctx context.Context, requester auth.Requester, page, limit int) (*dto.JournalFeedResponse, error)
	GetByID(ctx context.Context, requester auth.Requester, journalID int64) (*dto.JournalResponse, error)
}

type feedServiceImpl struct {
	tx        db.TxRunner
	journals  *repositories.JournalRepository
	tags      *repositories.TagRepository
	assembler journalAssembler
	now       func() time.Time
	logger    zerolog.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(tx db.TxRunner, repos *repositories.Repositories, logger zerolog.Logger) FeedService {
	return &feedServiceImpl{
		tx:        tx,
		journals:  repos.JournalRepository,
		tags:      repos.TagRepository,
		assembler: newJournalAssembler(repos),
		now:       time.Now,
		logger:    logger,
	}
}

// GetFeed returns a teacher's own journals in every state, newest first, or the
// journals a student is tagged in and that are live now, by publish time.
// Reading marks the returned journals as viewed for a student.
func (s *feedServiceImpl) GetFeed(ctx context.Context, requester auth.Requester, page, limit int) (*dto.JournalFeedResponse, error) {
	page, limit = helpers.NormalizePage(page, limit)
	offset, size := helpers.CalculateOffsetLimit(page, limit)
	now := s.now()

	var (
		journals []models.Journal
		total    int64
		resp     []dto.JournalResponse
	)

	switch r := requester.(type) {
	case auth.Teacher:
		var err error
		journals, total, err = s.journals.ListByTeacher(ctx, r.ID, offset, size)
		if err != nil {
			return nil, fmt.Errorf("error listing teacher journals: %w", err)
		}
		resp, err = s.assembler.assemble(ctx, journals, now)
		if err != nil {
			return nil, err
		}
	case auth.Student:
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var err error
			journals, total, err = s.journals.WithTx(tx).ListVisibleToStudent(ctx, r.ID, now, offset, size)
			if err != nil {
				return fmt.Errorf("error listing student feed: %w", err)
			}
			resp, err = s.assembler.withTx(tx).assemble(ctx, journals, now)
			if err != nil {
				return err
			}
			return s.tags.WithTx(tx).MarkViewed(ctx, r.ID, journalIDs(journals))
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.ErrUnauthorized
	}

	metrics.FeedReads.WithLabelValues(string(requester.Role())).Inc()

	return &dto.JournalFeedResponse{
		Journals:   resp,
		Pagination: helpers.NewPaginationInfo(total, page, limit),
	}, nil
}

// GetByID returns one journal under the same visibility rules as GetFeed
func (s *feedServiceImpl) GetByID(ctx context.Context, requester auth.Requester, journalID int64) (*dto.JournalResponse, error) {
	now := s.now()

	switch r := requester.(type) {
	case auth.Teacher:
		j, err := s.journals.GetForTeacher(ctx, journalID, r.ID)
		if err != nil {
			return nil, feedNotFound(err)
		}
		return s.assembler.assembleOne(ctx, *j, now)
	case auth.Student:
		var resp *dto.JournalResponse
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			j, err := s.journals.WithTx(tx).GetVisibleToStudent(ctx, journalID, r.ID, now)
			if err != nil {
				return feedNotFound(err)
			}
			resp, err = s.assembler.withTx(tx).assembleOne(ctx, *j, now)
			if err != nil {
				return err
			}
			return s.tags.WithTx(tx).MarkViewed(ctx, r.ID, []int64{j.ID})
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	default:
		return nil, apperrors.ErrUnauthorized
	}
}

func feedNotFound(err error) error {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return apperrors.NewNotFoundOrForbiddenError("journal not found")
	}
	return err
}

func journalIDs(journals []models.Journal) []int64 {
	ids := make([]int64, len(journals))
	for i, j := range journals {
		ids[i] = j.ID
	}
	return ids
}
