package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// PreferenceRepository handles notification_preferences
type PreferenceRepository struct {
	db DBTX
}

// NewPreferenceRepository creates a new PreferenceRepository
func NewPreferenceRepository(db DBTX) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

var preferenceColumns = []string{"user_id", "email_enabled", "in_app_enabled", "push_enabled", "email_frequency", "created_at", "updated_at"}

// GetOrCreate returns the user's preferences, inserting the defaults first if none exist
func (r *PreferenceRepository) GetOrCreate(ctx context.Context, userID int64) (*models.NotificationPreference, error) {
	def := models.DefaultNotificationPreference(userID)
	insertSQL, insertArgs, err := psql.Insert("notification_preferences").
		Columns("user_id", "email_enabled", "in_app_enabled", "push_enabled", "email_frequency").
		Values(def.UserID, def.EmailEnabled, def.InAppEnabled, def.PushEnabled, def.EmailFrequency).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build default preferences query: %w", err)
	}
	if _, err := r.db.Exec(ctx, insertSQL, insertArgs...); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error creating default notification preferences")
		return nil, err
	}

	sqlStr, args, err := psql.Select(preferenceColumns...).From("notification_preferences").
		Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get preferences query: %w", err)
	}

	var p models.NotificationPreference
	err = r.db.QueryRow(ctx, sqlStr, args...).Scan(&p.UserID, &p.EmailEnabled, &p.InAppEnabled, &p.PushEnabled, &p.EmailFrequency, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update writes all channel switches of an existing preference row
func (r *PreferenceRepository) Update(ctx context.Context, p *models.NotificationPreference) error {
	sqlStr, args, err := psql.Update("notification_preferences").
		Set("email_enabled", p.EmailEnabled).
		Set("in_app_enabled", p.InAppEnabled).
		Set("push_enabled", p.PushEnabled).
		Set("email_frequency", p.EmailFrequency).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"user_id": p.UserID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update preferences query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&p.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("userID", p.UserID).Msg("Error updating notification preferences")
		return err
	}
	return nil
}
