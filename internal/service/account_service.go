package service

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/access"
	"github.com/AdrianLinares/petcare-app-sub000/internal/ids"
	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// TokenRevoker drops outstanding reset tokens of an account.
type TokenRevoker interface {
	DeleteByAccount(ctx context.Context, accountID string) error
}

// AccountService applies account mutations behind the permission evaluator.
// Every method takes the acting account; nothing here trusts the caller to
// have checked permissions first.
type AccountService struct {
	accounts AccountStore
	tokens   TokenRevoker
	mailer   Mailer
	metrics  *metrics.Recorder
	policy   security.PasswordPolicy
	hash     PasswordHasher
	log      zerolog.Logger
}

type AccountOption func(*AccountService)

func WithAccountPolicy(policy security.PasswordPolicy) AccountOption {
	return func(s *AccountService) { s.policy = policy }
}

func WithAccountHasher(hash PasswordHasher) AccountOption {
	return func(s *AccountService) {
		if hash != nil {
			s.hash = hash
		}
	}
}

func WithAccountMetrics(rec *metrics.Recorder) AccountOption {
	return func(s *AccountService) { s.metrics = rec }
}

func NewAccountService(accounts AccountStore, tokens TokenRevoker, mailer Mailer, log zerolog.Logger, opts ...AccountOption) *AccountService {
	s := &AccountService{
		accounts: accounts,
		tokens:   tokens,
		mailer:   mailer,
		policy:   security.DefaultPasswordPolicy,
		hash:     defaultHasher,
		log:      log.With().Str("component", "accounts").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateAccountInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        models.Role
	AdminTier   models.AdminTier
}

// AccessSummary tells a client what the acting account may do.
type AccessSummary struct {
	Capabilities    []string           `json:"capabilities"`
	CreatableRoles  []models.Role      `json:"creatableRoles"`
	AssignableTiers []models.AdminTier `json:"assignableTiers"`
}

func (s *AccountService) Describe(actor models.Account) AccessSummary {
	return AccessSummary{
		Capabilities:    access.PermissionsFor(actor.Role, actor.AdminTier).Names(),
		CreatableRoles:  access.CreatableRoles(actor),
		AssignableTiers: access.AssignableTiers(actor),
	}
}

func (s *AccountService) Create(ctx context.Context, actor models.Account, input CreateAccountInput) (models.Account, error) {
	if !access.HasCapability(actor, access.CreateAccounts) {
		return models.Account{}, s.deny(actor, "create_account", "")
	}
	if err := validateRoleTier(input.Role, input.AdminTier); err != nil {
		return models.Account{}, err
	}
	if !access.CanAssignRole(actor, input.Role, input.AdminTier) {
		return models.Account{}, s.deny(actor, "create_account", "")
	}

	email, err := normalizeAddress(input.Email)
	if err != nil {
		return models.Account{}, err
	}
	if unmet := s.policy.Check(input.Password); len(unmet) > 0 {
		return models.Account{}, newWeakPasswordError(s.policy, unmet)
	}
	passwordHash, err := s.hash(input.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		AdminTier:    input.AdminTier,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return models.Account{}, err
	}

	s.log.Info().
		Str("actor_id", actor.ID).
		Str("account_id", account.ID).
		Str("role", string(account.Role)).
		Str("tier", string(account.AdminTier)).
		Msg("account created")

	return s.accounts.GetByID(ctx, account.ID)
}

// ChangeRole moves target to a new role and tier. Actors cannot change their
// own role.
func (s *AccountService) ChangeRole(ctx context.Context, actor models.Account, targetID string, role models.Role, tier models.AdminTier) (models.Account, error) {
	if !access.HasCapability(actor, access.EditAccounts) || actor.ID == targetID {
		return models.Account{}, s.deny(actor, "change_role", targetID)
	}
	if err := validateRoleTier(role, tier); err != nil {
		return models.Account{}, err
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return models.Account{}, err
	}
	if !access.CanManage(actor, target) || !access.CanAssignRole(actor, role, tier) {
		return models.Account{}, s.deny(actor, "change_role", targetID)
	}

	if err := s.accounts.UpdateRoleAndTier(ctx, target.ID, role, tier); err != nil {
		return models.Account{}, err
	}

	s.log.Info().
		Str("actor_id", actor.ID).
		Str("account_id", target.ID).
		Str("from_role", string(target.Role)).
		Str("to_role", string(role)).
		Str("to_tier", string(tier)).
		Msg("account role changed")

	return s.accounts.GetByID(ctx, target.ID)
}

// ChangeEmail updates the address of the actor itself or of an account the
// actor manages. Outstanding reset tokens are dropped with the change.
func (s *AccountService) ChangeEmail(ctx context.Context, actor models.Account, targetID string, email string) (models.Account, error) {
	normalized, err := normalizeAddress(email)
	if err != nil {
		return models.Account{}, err
	}

	if actor.ID != targetID {
		if !access.HasCapability(actor, access.EditAccounts) {
			return models.Account{}, s.deny(actor, "change_email", targetID)
		}
		target, err := s.accounts.GetByID(ctx, targetID)
		if err != nil {
			return models.Account{}, err
		}
		if !access.CanManage(actor, target) {
			return models.Account{}, s.deny(actor, "change_email", targetID)
		}
	}

	if err := s.accounts.UpdateEmail(ctx, targetID, normalized); err != nil {
		return models.Account{}, err
	}

	s.log.Info().Str("actor_id", actor.ID).Str("account_id", targetID).Msg("account email changed")
	return s.accounts.GetByID(ctx, targetID)
}

func (s *AccountService) Remove(ctx context.Context, actor models.Account, targetID string) error {
	if !access.HasCapability(actor, access.DeleteAccounts) || actor.ID == targetID {
		return s.deny(actor, "remove_account", targetID)
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !access.CanManage(actor, target) {
		return s.deny(actor, "remove_account", targetID)
	}

	if err := s.tokens.DeleteByAccount(ctx, target.ID); err != nil {
		return fmt.Errorf("revoke reset tokens: %w", err)
	}
	if err := s.accounts.Delete(ctx, target.ID); err != nil {
		return err
	}

	s.log.Info().Str("actor_id", actor.ID).Str("account_id", target.ID).Msg("account removed")
	return nil
}

// ChangePassword is the signed-in counterpart of a reset: the current
// password stands in for the emailed secret.
func (s *AccountService) ChangePassword(ctx context.Context, actor models.Account, current string, next string) error {
	account, err := s.accounts.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(current, account.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if unmet := s.policy.Check(next); len(unmet) > 0 {
		return newWeakPasswordError(s.policy, unmet)
	}

	passwordHash, err := s.hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// Outstanding reset tokens are dropped in the same transaction.
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, passwordHash); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordChangedNotification(ctx, account.Email); err != nil {
		s.metrics.MailDispatchFailed(mailKindChanged)
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("password changed mail dispatch failed")
	}

	s.log.Info().Str("account_id", account.ID).Msg("password changed")
	return nil
}

func (s *AccountService) List(ctx context.Context, actor models.Account, limit, offset int) ([]models.Account, error) {
	if !access.HasCapability(actor, access.ViewAllAccounts) {
		return nil, s.deny(actor, "list_accounts", "")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.List(ctx, limit, offset)
}

func (s *AccountService) deny(actor models.Account, action string, targetID string) error {
	s.metrics.AccessDenied(action)
	s.log.Warn().
		Str("actor_id", actor.ID).
		Str("action", action).
		Str("target_id", targetID).
		Msg("access denied")
	return ErrUnauthorized
}

func validateRoleTier(role models.Role, tier models.AdminTier) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if role == models.RoleAdministrator {
		if !tier.Valid() {
			return ErrInvalidTier
		}
		return nil
	}
	if tier != models.AdminTierNone {
		return ErrInvalidTier
	}
	return nil
}

func normalizeAddress(email string) (string, error) {
	normalized := models.NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
