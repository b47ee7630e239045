// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nthalt/user-api/internal/core"
)

// Repository covers the credential columns of the users table.
type Repository interface {
	SetResetToken(
		ctx context.Context,
		userID int64,
		token string,
		expiresAt time.Time,
	) error
	FindByResetToken(ctx context.Context, token string) (*ResetToken, error)
	ClearResetToken(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

type TxRunner func(ctx context.Context, fn func(Repository) error) error

func SQLTxRunner(db *sqlx.DB) TxRunner {
	return func(ctx context.Context, fn func(Repository) error) error {
		return core.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return fn(NewRepository(tx))
		})
	}
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) SetResetToken(
	ctx context.Context,
	userID int64,
	token string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_reset_token = $2, password_reset_expiration = $3,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, token, expiresAt)
	if err != nil {
		if _, dup := core.UniqueViolation(err); dup {
			return fmt.Errorf("set reset token: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("set reset token: %w", err)
	}

	return requireRow(result, "set reset token")
}

// FindByResetToken locks the matching row so a token cannot be redeemed
// twice by concurrent requests.
func (r *repository) FindByResetToken(
	ctx context.Context,
	token string,
) (*ResetToken, error) {
	query := `
		SELECT id, email, password_reset_token, password_reset_expiration
		FROM users
		WHERE password_reset_token = $1
		FOR UPDATE`

	var rt ResetToken
	err := r.db.GetContext(ctx, &rt, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find reset token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}

	return &rt, nil
}

func (r *repository) ClearResetToken(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expiration = NULL,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}

	return requireRow(result, "clear reset token")
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	userID int64,
	passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return requireRow(result, "update password")
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}
