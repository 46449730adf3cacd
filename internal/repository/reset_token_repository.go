package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
)

type ResetTokenRepository struct {
	db DB
}

func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Replace stores token as the only token of its account. The unique index on
// account_id turns this into one atomic replace, so concurrent issuers for the
// same account cannot leave two live tokens behind.
func (r *ResetTokenRepository) Replace(ctx context.Context, token models.ResetToken) error {
	const query = `
		INSERT INTO password_reset_tokens (
			id, account_id, account_email, secret_hash, issued_at, expires_at, used, used_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, FALSE, NULL
		)
		ON CONFLICT (account_id)
		DO UPDATE SET
			id = EXCLUDED.id,
			account_email = EXCLUDED.account_email,
			secret_hash = EXCLUDED.secret_hash,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			used = FALSE,
			used_at = NULL
	`

	_, err := r.db.Exec(ctx, query,
		token.ID,
		token.AccountID,
		token.AccountEmail,
		token.SecretHash,
		token.IssuedAt,
		token.ExpiresAt,
	)
	return err
}

func (r *ResetTokenRepository) FindBySecretHash(ctx context.Context, secretHash []byte) (models.ResetToken, error) {
	const query = `
		SELECT id, account_id, account_email, secret_hash, issued_at, expires_at, used, used_at
		FROM password_reset_tokens
		WHERE secret_hash = $1
	`

	var token models.ResetToken
	if err := r.db.QueryRow(ctx, query, secretHash).Scan(
		&token.ID,
		&token.AccountID,
		&token.AccountEmail,
		&token.SecretHash,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Used,
		&token.UsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ResetToken{}, ErrResetTokenNotFound
		}
		return models.ResetToken{}, err
	}
	return token, nil
}

// Redeem marks the token used and stores the new password hash in one
// transaction. The update only matches an unused, unexpired row, so of two
// concurrent redeemers exactly one succeeds; the other gets
// ErrResetTokenNotFound.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenID string, accountID string, passwordHash []byte, now time.Time) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const consume = `
		UPDATE password_reset_tokens
		SET used = TRUE, used_at = $3
		WHERE id = $1 AND account_id = $2 AND used = FALSE AND expires_at > $3
	`
	cmd, err := tx.Exec(ctx, consume, tokenID, accountID, now)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrResetTokenNotFound
	}

	cmd, err = tx.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, accountID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return tx.Commit(ctx)
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM password_reset_tokens WHERE expires_at <= $1`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ResetTokenRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	const query = `DELETE FROM password_reset_tokens WHERE account_id = $1`
	_, err := r.db.Exec(ctx, query, accountID)
	return err
}
