package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// NotificationRepository handles notification records
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

var notificationColumns = []string{"id", "user_id", "journal_id", "type", "message", "is_read", "created_at"}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.JournalID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Create persists a notification and fills in its id
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	sqlStr, args, err := psql.Insert("notifications").
		Columns("user_id", "journal_id", "type", "message").
		Values(n.UserID, n.JournalID, n.Type, n.Message).
		Suffix("RETURNING id, is_read, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notification query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("userID", n.UserID).Int64("journalID", n.JournalID).Msg("Error creating notification")
		return err
	}
	return nil
}

// GetByID loads a notification
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	sqlStr, args, err := psql.Select(notificationColumns...).From("notifications").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get notification query: %w", err)
	}
	return scanNotification(r.db.QueryRow(ctx, sqlStr, args...))
}

// ListForUser returns one page of a user's notifications, newest first, plus the total count
func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, offset, limit uint64) ([]models.Notification, int64, error) {
	countSQL, countArgs, err := psql.Select("COUNT(*)").From("notifications").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count notifications query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= uint64(total) {
		return []models.Notification{}, total, nil
	}

	sqlStr, args, err := psql.Select(notificationColumns...).From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Offset(offset).Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing notifications")
		return nil, 0, err
	}
	defer rows.Close()

	items := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *n)
	}
	return items, total, rows.Err()
}

// MarkRead sets is_read on a notification owned by userID. Any other notification,
// existing or not, yields ErrResourceNotFound.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) (*models.Notification, error) {
	sqlStr, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + strings.Join(notificationColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mark read query: %w", err)
	}
	return scanNotification(r.db.QueryRow(ctx, sqlStr, args...))
}

// MarkAllRead sets is_read on every unread notification of the user
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	sqlStr, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark all read query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
