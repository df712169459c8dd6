package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// AttachmentRepository handles attachment rows. Blobs are managed by filestorage.
type AttachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(db DBTX) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *AttachmentRepository) WithTx(tx pgx.Tx) *AttachmentRepository {
	return &AttachmentRepository{db: tx}
}

// CreateBatch inserts attachments for a journal and fills in their ids
func (r *AttachmentRepository) CreateBatch(ctx context.Context, journalID int64, attachments []models.Attachment) error {
	for i := range attachments {
		a := &attachments[i]
		a.JournalID = journalID

		sqlStr, args, err := psql.Insert("attachments").
			Columns("journal_id", "kind", "locator", "url", "filename", "mime_type", "size").
			Values(journalID, a.Kind, a.Locator, a.URL, a.Filename, a.MimeType, a.Size).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert attachment query: %w", err)
		}
		if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
			logger.Error().Err(err).Int64("journalID", journalID).Str("filename", a.Filename).Msg("Error inserting attachment")
			return err
		}
	}
	return nil
}

// ListByJournalIDs returns attachments grouped by journal id, oldest first
func (r *AttachmentRepository) ListByJournalIDs(ctx context.Context, journalIDs []int64) (map[int64][]models.Attachment, error) {
	out := make(map[int64][]models.Attachment, len(journalIDs))
	if len(journalIDs) == 0 {
		return out, nil
	}

	sqlStr, args, err := psql.Select("id", "journal_id", "kind", "locator", "url", "filename", "mime_type", "size", "created_at").
		From("attachments").
		Where(squirrel.Eq{"journal_id": journalIDs}).
		OrderBy("journal_id", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list attachments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing attachments")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.JournalID, &a.Kind, &a.Locator, &a.URL, &a.Filename, &a.MimeType, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		out[a.JournalID] = append(out[a.JournalID], a)
	}
	return out, rows.Err()
}

// DeleteForJournal removes every attachment row of a journal and returns their blob locators
func (r *AttachmentRepository) DeleteForJournal(ctx context.Context, journalID int64) ([]string, error) {
	return r.deleteReturning(ctx, squirrel.Eq{"journal_id": journalID})
}

// DeleteByIDs removes the listed attachments of one journal. Ids that belong to other
// journals are ignored.
func (r *AttachmentRepository) DeleteByIDs(ctx context.Context, journalID int64, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	return r.deleteReturning(ctx, squirrel.Eq{"journal_id": journalID, "id": ids})
}

func (r *AttachmentRepository) deleteReturning(ctx context.Context, where squirrel.Eq) ([]string, error) {
	sqlStr, args, err := psql.Delete("attachments").Where(where).Suffix("RETURNING locator").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete attachments query: %w", err)
	}
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error deleting attachments")
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Count returns the number of attachments a journal has
func (r *AttachmentRepository) Count(ctx context.Context, journalID int64) (int, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").From("attachments").Where(squirrel.Eq{"journal_id": journalID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count attachments query: %w", err)
	}
	var n int
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&n)
	return n, err
}
