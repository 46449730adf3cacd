package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Statements are idempotent so the bootstrap can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		password_hash BYTEA NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL CHECK (role IN ('pet_owner', 'veterinarian', 'administrator')),
		admin_tier    TEXT CHECK (admin_tier IN ('standard', 'elevated', 'super_admin')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT accounts_tier_iff_admin CHECK ((role = 'administrator') = (admin_tier IS NOT NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (email)`,
	`CREATE TABLE IF NOT EXISTS password_reset_tokens (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		account_email TEXT NOT NULL,
		secret_hash   BYTEA NOT NULL,
		issued_at     TIMESTAMPTZ NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		used          BOOLEAN NOT NULL DEFAULT FALSE,
		used_at       TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS password_reset_tokens_account_key ON password_reset_tokens (account_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS password_reset_tokens_secret_key ON password_reset_tokens (secret_hash)`,
	`CREATE INDEX IF NOT EXISTS password_reset_tokens_expires_idx ON password_reset_tokens (expires_at)`,
}

func EnsureSchema(ctx context.Context, db execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
