package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
)

const accountColumns = `id, email, password_hash, display_name, role, admin_tier, created_at, updated_at`

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, password_hash, display_name, role, admin_tier, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		)
	`

	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		string(account.Role),
		tierParam(account.AdminTier),
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdatePasswordHash replaces the hash and drops outstanding reset tokens in
// the same transaction.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	cmd, err := tx.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	if _, err = tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE account_id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *AccountRepository) UpdateRoleAndTier(ctx context.Context, id string, role models.Role, tier models.AdminTier) error {
	const query = `UPDATE accounts SET role = $2, admin_tier = $3, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, string(role), tierParam(tier))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateEmail changes the address and drops any outstanding reset token in
// the same transaction, so a link mailed to the old address stops working.
func (r *AccountRepository) UpdateEmail(ctx context.Context, id string, email string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	cmd, err := tx.Exec(ctx, `UPDATE accounts SET email = $2, updated_at = NOW() WHERE id = $1`, id, models.NormalizeEmail(email))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	if _, err = tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE account_id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes the account; its reset tokens go with it through the
// foreign key cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account models.Account
		role    string
		tier    *string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.DisplayName,
		&role,
		&tier,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}

	account.Role = models.Role(role)
	if tier != nil {
		account.AdminTier = models.AdminTier(*tier)
	}
	return account, nil
}

func tierParam(tier models.AdminTier) *string {
	if tier == models.AdminTierNone {
		return nil
	}
	s := string(tier)
	return &s
}
