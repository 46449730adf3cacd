package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/ids"
	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/repository"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

// GenericResetMessage is returned for every reset request, whether or not the
// address belongs to an account.
const GenericResetMessage = "If an account exists for that email, a password reset link has been sent."

const DefaultTokenTTL = time.Hour

const mailKindReset, mailKindChanged = "password_reset", "password_changed"

type RequestResetResult struct {
	Message string `json:"message"`
}

type RecoveryService struct {
	accounts AccountLookup
	tokens   TokenStore
	mailer   Mailer
	metrics  *metrics.Recorder
	log      zerolog.Logger

	now      func() time.Time
	ttl      time.Duration
	policy   security.PasswordPolicy
	linkBase *url.URL
	hash     PasswordHasher
}

type RecoveryOption func(*RecoveryService)

func WithClock(now func() time.Time) RecoveryOption {
	return func(s *RecoveryService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithTokenTTL(ttl time.Duration) RecoveryOption {
	return func(s *RecoveryService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPolicy(policy security.PasswordPolicy) RecoveryOption {
	return func(s *RecoveryService) { s.policy = policy }
}

func WithRecoveryHasher(hash PasswordHasher) RecoveryOption {
	return func(s *RecoveryService) {
		if hash != nil {
			s.hash = hash
		}
	}
}

func WithRecoveryMetrics(rec *metrics.Recorder) RecoveryOption {
	return func(s *RecoveryService) { s.metrics = rec }
}

// NewRecoveryService fails only when linkBase is not an absolute URL.
func NewRecoveryService(
	accounts AccountLookup,
	tokens TokenStore,
	mailer Mailer,
	linkBase string,
	log zerolog.Logger,
	opts ...RecoveryOption,
) (*RecoveryService, error) {
	base, err := url.Parse(linkBase)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("recovery link base %q must be an absolute url", linkBase)
	}

	s := &RecoveryService{
		accounts: accounts,
		tokens:   tokens,
		mailer:   mailer,
		log:      log.With().Str("component", "recovery").Logger(),
		now:      time.Now,
		ttl:      DefaultTokenTTL,
		policy:   security.DefaultPasswordPolicy,
		linkBase: base,
		hash:     defaultHasher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestReset issues a fresh token for the account behind email and mails
// the recovery link. The result never reveals whether the account exists, so
// every failure past this point is logged and swallowed.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) RequestResetResult {
	result := RequestResetResult{Message: GenericResetMessage}
	s.metrics.RecoveryRequested()

	email = models.NormalizeEmail(email)
	if email == "" {
		return result
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.log.Debug().Msg("reset requested for unknown address")
		} else {
			s.log.Error().Err(err).Msg("account lookup failed during reset request")
		}
		return result
	}

	secret, secretHash, err := security.GenerateResetSecret()
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("generate reset secret failed")
		return result
	}

	now := s.now()
	token := models.ResetToken{
		ID:           ids.New(),
		AccountID:    account.ID,
		AccountEmail: account.Email,
		SecretHash:   secretHash,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.tokens.Replace(ctx, token); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("store reset token failed")
		return result
	}

	s.metrics.TokenIssued()
	s.log.Info().
		Str("account_id", account.ID).
		Str("token_id", token.ID).
		Time("expires_at", token.ExpiresAt).
		Msg("reset token issued")

	if err := s.mailer.SendPasswordResetEmail(ctx, account.Email, secret, s.recoveryLink(secret)); err != nil {
		s.metrics.MailDispatchFailed(mailKindReset)
		s.log.Warn().Err(err).Str("account_id", account.ID).Str("token_id", token.ID).Msg("reset mail dispatch failed")
	}

	return result
}

func (s *RecoveryService) recoveryLink(secret string) string {
	link := *s.linkBase
	q := link.Query()
	q.Set("token", secret)
	link.RawQuery = q.Encode()
	return link.String()
}

// ValidateToken resolves secret to its token without changing it.
func (s *RecoveryService) ValidateToken(ctx context.Context, secret string) (models.ResetToken, error) {
	if secret == "" {
		return models.ResetToken{}, ErrInvalidOrExpiredToken
	}

	token, err := s.tokens.FindBySecretHash(ctx, security.HashResetSecret(secret))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return models.ResetToken{}, ErrInvalidOrExpiredToken
		}
		return models.ResetToken{}, fmt.Errorf("lookup reset token: %w", err)
	}

	if !token.Active(s.now()) {
		return models.ResetToken{}, ErrInvalidOrExpiredToken
	}
	return token, nil
}

// CompleteReset consumes the token and sets the new password atomically. Of
// several concurrent calls with the same secret at most one succeeds.
func (s *RecoveryService) CompleteReset(ctx context.Context, secret string, newPassword string) error {
	err := s.completeReset(ctx, secret, newPassword)

	var weak *WeakPasswordError
	switch {
	case err == nil:
		s.metrics.RecoveryCompleted(metrics.OutcomeSuccess)
	case errors.Is(err, ErrInvalidOrExpiredToken):
		s.metrics.RecoveryCompleted(metrics.OutcomeInvalidToken)
	case errors.As(err, &weak):
		s.metrics.RecoveryCompleted(metrics.OutcomeWeakPassword)
	default:
		s.metrics.RecoveryCompleted(metrics.OutcomeError)
	}
	return err
}

func (s *RecoveryService) completeReset(ctx context.Context, secret string, newPassword string) error {
	token, err := s.ValidateToken(ctx, secret)
	if err != nil {
		return err
	}

	if unmet := s.policy.Check(newPassword); len(unmet) > 0 {
		return newWeakPasswordError(s.policy, unmet)
	}

	passwordHash, err := s.hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.tokens.Redeem(ctx, token.ID, token.AccountID, passwordHash, s.now()); err != nil {
		// Lost the race, expired in between, or the account vanished.
		if errors.Is(err, repository.ErrResetTokenNotFound) || errors.Is(err, repository.ErrAccountNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}

	s.log.Info().Str("account_id", token.AccountID).Str("token_id", token.ID).Msg("password reset completed")

	if err := s.mailer.SendPasswordChangedNotification(ctx, token.AccountEmail); err != nil {
		s.metrics.MailDispatchFailed(mailKindChanged)
		s.log.Warn().Err(err).Str("account_id", token.AccountID).Msg("password changed mail dispatch failed")
	}

	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn().Err(err).Msg("lazy sweep failed")
	}
	return nil
}

// Sweep deletes every token whose expiry has passed.
func (s *RecoveryService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep reset tokens: %w", err)
	}
	s.metrics.TokensSwept(n)
	if n > 0 {
		s.log.Debug().Int64("deleted", n).Msg("expired reset tokens swept")
	}
	return n, nil
}
