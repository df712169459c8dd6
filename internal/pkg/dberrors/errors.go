package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// PostgreSQL error codes
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// IsDuplicateConstraintError checks if the error is a unique violation on constraintName
func IsDuplicateConstraintError(err error, constraintName string) bool {
	code, constraint, ok := pgCode(err)
	return ok && code == codeUniqueViolation && constraint == constraintName
}

// IsForeignKeyViolation reports a foreign key violation on any constraint
func IsForeignKeyViolation(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == codeForeignKeyViolation
}

// IsSerializationFailure reports errors that mean a concurrent transaction won
func IsSerializationFailure(err error) bool {
	code, _, ok := pgCode(err)
	return ok && (code == codeSerializationFailure || code == codeDeadlockDetected)
}

// Classify maps storage errors that have a domain meaning onto apperrors, and
// returns every other error unchanged
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsSerializationFailure(err):
		return apperrors.NewConflictError("the journal was modified concurrently, retry the request")
	case IsForeignKeyViolation(err):
		return apperrors.NewValidationError("a referenced record does not exist")
	default:
		return err
	}
}
