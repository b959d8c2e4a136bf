package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Accounts stores registered users in the accounts table.
type Accounts struct {
	pool *pgxpool.Pool
}

func NewAccounts(pool *pgxpool.Pool) *Accounts {
	return &Accounts{pool: pool}
}

// Register creates an account for username with a bcrypt hash of password.
func (a *Accounts) Register(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO accounts (username, password_hash, last_login_at) VALUES ($1, $2, now())`,
		username, hash,
	)
	return accountError("insert account", err)
}

// Authenticate verifies password for username and records the login time.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) error {
	var hash string
	err := a.pool.QueryRow(ctx,
		`SELECT password_hash FROM accounts WHERE username = $1`,
		username,
	).Scan(&hash)
	if err != nil {
		return accountError("select account", err)
	}

	if !CheckPassword(hash, password) {
		return ErrBadCredentials
	}

	if _, err := a.pool.Exec(ctx, `UPDATE accounts SET last_login_at = now() WHERE username = $1`, username); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
