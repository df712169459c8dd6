package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/dberrors"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// UserRepository handles database operations related to users
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, err
	}
	return &u, nil
}

var userColumns = []string{"id", "username", "email", "role", "created_at", "updated_at"}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	sqlStr, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	user, err := scanUser(r.db.QueryRow(ctx, sqlStr, args...))
	if err != nil && err != apperrors.ErrResourceNotFound {
		logger.Error().Err(err).Int64("userID", id).Msg("Error fetching user")
	}
	return user, err
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	sqlStr, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"username": username}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	return scanUser(r.db.QueryRow(ctx, sqlStr, args...))
}

// Create inserts a user and returns its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	sqlStr, args, err := psql.Insert("users").
		Columns("username", "email", "role").
		Values(user.Username, user.Email, user.Role).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_username_key") {
			return 0, apperrors.NewConflictError("username already exists")
		}
		logger.Error().Err(err).Str("username", user.Username).Msg("Error creating user")
		return 0, err
	}
	return user.ID, nil
}

// FindStudentIDs returns the subset of ids that belong to student users
func (r *UserRepository) FindStudentIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	sqlStr, args, err := psql.Select("id").From("users").
		Where(squirrel.Eq{"id": ids, "role": models.RoleStudent}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student lookup query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error resolving student ids")
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// GetSummaries returns id, username and role for the given users keyed by id
func (r *UserRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]models.UserSummary, error) {
	out := make(map[int64]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sqlStr, args, err := psql.Select("id", "username", "role").From("users").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user summary query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Role); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// ListStudents returns every student ordered by username, for teachers choosing whom to tag
func (r *UserRepository) ListStudents(ctx context.Context) ([]models.UserSummary, error) {
	sqlStr, args, err := psql.Select("id", "username", "role").From("users").
		Where(squirrel.Eq{"role": models.RoleStudent}).
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student list query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing students")
		return nil, err
	}
	defer rows.Close()

	students := []models.UserSummary{}
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Role); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
