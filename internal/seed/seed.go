package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/classjournal/internal/app/models"
	appRepos "github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// DefaultUsers are the development accounts created on startup outside production
var DefaultUsers = []appModels.User{
	{Username: "teacher1", Email: strPtr("teacher1@classjournal.local"), Role: appModels.RoleTeacher},
	{Username: "student1", Email: strPtr("student1@classjournal.local"), Role: appModels.RoleStudent},
	{Username: "student2", Email: strPtr("student2@classjournal.local"), Role: appModels.RoleStudent},
}

// CreateDefaultData creates the development users if they don't exist.
// Errors are collected so one failing account does not block the others.
func CreateDefaultData(ctx context.Context, db appRepos.DBTX, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(db)

	lgr.Info().Msg("Checking/Creating default users...")
	var finalErr error // To collect potential errors without stopping the process

	// --- Default Teacher & Students --- //
	for _, u := range DefaultUsers {
		// Check if user already exists
		existing, err := userRepo.GetByUsername(ctx, u.Username)
		if err == nil {
			lgr.Debug().Str("username", u.Username).Int64("userID", existing.ID).Msg("Default user already exists")
			continue
		}
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			lgr.Error().Err(err).Str("username", u.Username).Msg("Error checking default user")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		// Create user if not exists
		user := u
		id, err := userRepo.Create(ctx, &user)
		if err != nil {
			lgr.Error().Err(err).Str("username", u.Username).Msg("Error creating default user")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Str("username", u.Username).Str("role", string(u.Role)).Int64("userID", id).Msg("Default user created")
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr // Return collected errors, if any
}

func strPtr(s string) *string { return &s }
