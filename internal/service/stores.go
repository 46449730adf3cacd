package service

import (
	"context"
	"time"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

// AccountLookup is all the recovery flow needs from the account store.
type AccountLookup interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
}

type AccountStore interface {
	AccountLookup
	GetByID(ctx context.Context, id string) (models.Account, error)
	List(ctx context.Context, limit, offset int) ([]models.Account, error)
	Create(ctx context.Context, account models.Account) error
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	UpdateRoleAndTier(ctx context.Context, id string, role models.Role, tier models.AdminTier) error
	UpdateEmail(ctx context.Context, id string, email string) error
	Delete(ctx context.Context, id string) error
}

type TokenStore interface {
	Replace(ctx context.Context, token models.ResetToken) error
	FindBySecretHash(ctx context.Context, secretHash []byte) (models.ResetToken, error)
	Redeem(ctx context.Context, tokenID string, accountID string, passwordHash []byte, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByAccount(ctx context.Context, accountID string) error
}

type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, secret, recoveryLink string) error
	SendPasswordChangedNotification(ctx context.Context, toEmail string) error
}

// PasswordHasher produces the stored form of a password.
type PasswordHasher func(password string) ([]byte, error)

var defaultHasher PasswordHasher = security.HashPassword
