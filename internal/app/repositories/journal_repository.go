package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// JournalRepository handles database operations for journals
type JournalRepository struct {
	db DBTX
}

// NewJournalRepository creates a new JournalRepository
func NewJournalRepository(db DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *JournalRepository) WithTx(tx pgx.Tx) *JournalRepository {
	return &JournalRepository{db: tx}
}

var journalColumns = []string{
	"j.id", "j.title", "j.description", "j.teacher_id", "j.published_at", "j.is_published", "j.created_at", "j.updated_at",
}

func (r *JournalRepository) selectJournals() squirrel.SelectBuilder {
	return psql.Select(journalColumns...).From("journals j")
}

func scanJournal(row pgx.Row) (*models.Journal, error) {
	var j models.Journal
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.TeacherID, &j.PublishedAt, &j.IsPublished, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrResourceNotFound
		}
		logger.Error().Err(err).Msg("Error scanning journal")
		return nil, err
	}
	return &j, nil
}

func collectJournals(rows pgx.Rows) ([]models.Journal, error) {
	defer rows.Close()
	journals := []models.Journal{}
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		journals = append(journals, *j)
	}
	return journals, rows.Err()
}

// Create inserts a journal and fills in its generated fields
func (r *JournalRepository) Create(ctx context.Context, journal *models.Journal) error {
	sqlStr, args, err := psql.Insert("journals").
		Columns("title", "description", "teacher_id", "published_at", "is_published").
		Values(journal.Title, journal.Description, journal.TeacherID, journal.PublishedAt, journal.IsPublished).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create journal query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&journal.ID, &journal.CreatedAt, &journal.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("teacherID", journal.TeacherID).Msg("Error creating journal")
		return err
	}
	return nil
}

// LockForTeacher loads a journal owned by teacherID and locks its row until the
// transaction ends. Returns ErrResourceNotFound when the pair does not match.
func (r *JournalRepository) LockForTeacher(ctx context.Context, id, teacherID int64) (*models.Journal, error) {
	sqlStr, args, err := r.selectJournals().
		Where(squirrel.Eq{"j.id": id, "j.teacher_id": teacherID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock journal query: %w", err)
	}
	return scanJournal(r.db.QueryRow(ctx, sqlStr, args...))
}

// GetForTeacher loads a journal owned by teacherID without locking
func (r *JournalRepository) GetForTeacher(ctx context.Context, id, teacherID int64) (*models.Journal, error) {
	sqlStr, args, err := r.selectJournals().
		Where(squirrel.Eq{"j.id": id, "j.teacher_id": teacherID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get journal query: %w", err)
	}
	return scanJournal(r.db.QueryRow(ctx, sqlStr, args...))
}

// Update writes title, description and publication fields
func (r *JournalRepository) Update(ctx context.Context, journal *models.Journal) error {
	sqlStr, args, err := psql.Update("journals").
		Set("title", journal.Title).
		Set("description", journal.Description).
		Set("published_at", journal.PublishedAt).
		Set("is_published", journal.IsPublished).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": journal.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update journal query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&journal.UpdatedAt); err != nil {
		if isNoRows(err) {
			return apperrors.ErrResourceNotFound
		}
		logger.Error().Err(err).Int64("journalID", journal.ID).Msg("Error updating journal")
		return err
	}
	return nil
}

// Delete removes the journal row
func (r *JournalRepository) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := psql.Delete("journals").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete journal query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Int64("journalID", id).Msg("Error deleting journal")
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrResourceNotFound
	}
	return nil
}

// ListByTeacher returns one page of a teacher's journals, newest first, plus the total count
func (r *JournalRepository) ListByTeacher(ctx context.Context, teacherID int64, offset, limit uint64) ([]models.Journal, int64, error) {
	filter := squirrel.Eq{"j.teacher_id": teacherID}

	total, err := r.count(ctx, psql.Select("COUNT(*)").From("journals j").Where(filter))
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= uint64(total) {
		return []models.Journal{}, total, nil
	}

	sqlStr, args, err := r.selectJournals().
		Where(filter).
		OrderBy("j.created_at DESC", "j.id DESC").
		Offset(offset).Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build teacher feed query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Int64("teacherID", teacherID).Msg("Error listing teacher journals")
		return nil, 0, err
	}
	journals, err := collectJournals(rows)
	return journals, total, err
}

// studentVisible is the live gate: tagged to the student and published at or before now.
// The is_published snapshot only drives write-time transitions and can lag, so reads
// never filter on it.
func studentVisible(studentID int64, now time.Time) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"js.student_id": studentID},
		squirrel.NotEq{"j.published_at": nil},
		squirrel.LtOrEq{"j.published_at": now},
	}
}

// ListVisibleToStudent returns one page of the journals a student may read at now,
// most recently published first, plus the total count
func (r *JournalRepository) ListVisibleToStudent(ctx context.Context, studentID int64, now time.Time, offset, limit uint64) ([]models.Journal, int64, error) {
	gate := studentVisible(studentID, now)

	total, err := r.count(ctx, psql.Select("COUNT(*)").From("journals j").
		Join("journal_students js ON js.journal_id = j.id").
		Where(gate))
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= uint64(total) {
		return []models.Journal{}, total, nil
	}

	sqlStr, args, err := r.selectJournals().
		Join("journal_students js ON js.journal_id = j.id").
		Where(gate).
		OrderBy("j.published_at DESC", "j.id DESC").
		Offset(offset).Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build student feed query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error listing student journals")
		return nil, 0, err
	}
	journals, err := collectJournals(rows)
	return journals, total, err
}

// GetVisibleToStudent loads one journal if the student may read it at now
func (r *JournalRepository) GetVisibleToStudent(ctx context.Context, id, studentID int64, now time.Time) (*models.Journal, error) {
	sqlStr, args, err := r.selectJournals().
		Join("journal_students js ON js.journal_id = j.id").
		Where(squirrel.Eq{"j.id": id}).
		Where(studentVisible(studentID, now)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student journal query: %w", err)
	}
	return scanJournal(r.db.QueryRow(ctx, sqlStr, args...))
}

func (r *JournalRepository) count(ctx context.Context, builder squirrel.SelectBuilder) (int64, error) {
	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error executing count query")
		return 0, err
	}
	return total, nil
}
