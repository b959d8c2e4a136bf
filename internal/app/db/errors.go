package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAccountExists is returned by Register for a taken username.
	ErrAccountExists = errors.New("account already exists")

	// ErrBadCredentials is returned by Authenticate for an unknown user or wrong password.
	ErrBadCredentials = errors.New("invalid username or password")
)

// SQLSTATE codes the account store distinguishes.
const (
	codeUniqueViolation = "23505"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// accountError maps a driver error from op onto the store's sentinels, wrapping
// anything else with op for context.
func accountError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return ErrAccountExists
	case errors.Is(err, pgx.ErrNoRows):
		return ErrBadCredentials
	}
	return fmt.Errorf("%s: %w", op, err)
}
