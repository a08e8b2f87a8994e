// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakesanders16/mini-youtube/internal/pkg/apperr"
)

// PostgreSQL error codes mapped to domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Not-found errors returned by the repositories.
var (
	ErrUserNotFound      = apperr.New(apperr.ErrNotFound, "user not found")
	ErrVideoNotFound     = apperr.New(apperr.ErrNotFound, "video not found")
	ErrChallengeNotFound = apperr.New(apperr.ErrNotFound, "challenge not found")
	ErrGymNotFound       = apperr.New(apperr.ErrNotFound, "gym not found")

	errReactionNotFound = apperr.New(apperr.ErrNotFound, "reaction not found")
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapError converts driver errors into domain errors. notFound is returned
// for pgx.ErrNoRows and foreign key violations; op names the failing
// operation for anything else.
func mapError(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case pgCode(err) == codeUniqueViolation:
		return apperr.Newf(apperr.ErrConflict, "%s: already exists", op)
	case pgCode(err) == codeForeignKeyViolation && notFound != nil:
		return notFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
