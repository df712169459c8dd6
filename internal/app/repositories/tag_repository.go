package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// TagRepository handles the journal_students relation
type TagRepository struct {
	db DBTX
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db DBTX) *TagRepository {
	return &TagRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *TagRepository) WithTx(tx pgx.Tx) *TagRepository {
	return &TagRepository{db: tx}
}

// Replace deletes every tag of the journal and inserts one fresh row per student.
// Per-student flags of the previous set are discarded.
func (r *TagRepository) Replace(ctx context.Context, journalID int64, studentIDs []int64) error {
	sqlStr, args, err := psql.Delete("journal_students").Where(squirrel.Eq{"journal_id": journalID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete tags query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		logger.Error().Err(err).Int64("journalID", journalID).Msg("Error clearing journal tags")
		return err
	}

	if len(studentIDs) == 0 {
		return nil
	}

	insert := psql.Insert("journal_students").Columns("journal_id", "student_id")
	for _, studentID := range studentIDs {
		insert = insert.Values(journalID, studentID)
	}
	sqlStr, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert tags query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		logger.Error().Err(err).Int64("journalID", journalID).Int("count", len(studentIDs)).Msg("Error inserting journal tags")
		return err
	}
	return nil
}

// ListStudentIDs returns the ids of students tagged in a journal
func (r *TagRepository) ListStudentIDs(ctx context.Context, journalID int64) ([]int64, error) {
	sqlStr, args, err := psql.Select("student_id").From("journal_students").
		Where(squirrel.Eq{"journal_id": journalID}).
		OrderBy("student_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tag list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ListTaggedStudents returns the public summaries of tagged students keyed by journal id
func (r *TagRepository) ListTaggedStudents(ctx context.Context, journalIDs []int64) (map[int64][]models.UserSummary, error) {
	out := make(map[int64][]models.UserSummary, len(journalIDs))
	if len(journalIDs) == 0 {
		return out, nil
	}

	sqlStr, args, err := psql.Select("js.journal_id", "u.id", "u.username", "u.role").
		From("journal_students js").
		Join("users u ON u.id = js.student_id").
		Where(squirrel.Eq{"js.journal_id": journalIDs}).
		OrderBy("js.journal_id", "u.username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tagged students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing tagged students")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var journalID int64
		var s models.UserSummary
		if err := rows.Scan(&journalID, &s.ID, &s.Username, &s.Role); err != nil {
			return nil, err
		}
		out[journalID] = append(out[journalID], s)
	}
	return out, rows.Err()
}

// ResetNotificationSent marks delivery as owed for every tag of the journal
func (r *TagRepository) ResetNotificationSent(ctx context.Context, journalID int64) (int64, error) {
	sqlStr, args, err := psql.Update("journal_students").
		Set("notification_sent", false).
		Set("notification_reset_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"journal_id": journalID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build reset notification query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Int64("journalID", journalID).Msg("Error resetting notificationSent")
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkViewed sets hasViewedJournal for one student on the given journals. Rows already
// marked are left alone.
func (r *TagRepository) MarkViewed(ctx context.Context, studentID int64, journalIDs []int64) error {
	if len(journalIDs) == 0 {
		return nil
	}
	sqlStr, args, err := psql.Update("journal_students").
		Set("has_viewed_journal", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"student_id": studentID, "journal_id": journalIDs, "has_viewed_journal": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark viewed query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error marking journals viewed")
		return err
	}
	return nil
}

// MarkNotificationSent records a confirmed delivery for one tag. A missing tag is ignored,
// and so is a confirmation for a notification issued before the tag's last reset.
func (r *TagRepository) MarkNotificationSent(ctx context.Context, journalID, studentID int64, issuedAt time.Time) error {
	sqlStr, args, err := psql.Update("journal_students").
		Set("notification_sent", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"journal_id": journalID, "student_id": studentID, "notification_sent": false}).
		Where(squirrel.LtOrEq{"notification_reset_at": issuedAt}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark sent query: %w", err)
	}
	_, err = r.db.Exec(ctx, sqlStr, args...)
	return err
}

// ListStates returns every tag of the journal joined with the student's username
func (r *TagRepository) ListStates(ctx context.Context, journalID int64) ([]models.TagState, error) {
	sqlStr, args, err := psql.Select("js.student_id", "u.username", "js.has_viewed_journal", "js.notification_sent", "js.updated_at").
		From("journal_students js").
		Join("users u ON u.id = js.student_id").
		Where(squirrel.Eq{"js.journal_id": journalID}).
		OrderBy("u.username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tag states query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []models.TagState{}
	for rows.Next() {
		var s models.TagState
		if err := rows.Scan(&s.StudentID, &s.Username, &s.HasViewedJournal, &s.NotificationSent, &s.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
