package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/repository"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

var fastParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func fastHasher(password string) ([]byte, error) {
	return security.HashPasswordWithParams(password, fastParams)
}

// memStore keeps accounts and reset tokens behind one mutex, mirroring the
// guarantees of the SQL repositories.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	tokens   map[string]models.ResetToken // by account id

	lookupErr  error
	replaceErr error
	updateErr  error
}

func newMemStore(accounts ...models.Account) *memStore {
	s := &memStore{accounts: map[string]models.Account{}, tokens: map[string]models.ResetToken{}}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return models.Account{}, s.lookupErr
	}
	email = models.NormalizeEmail(email)
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, repository.ErrAccountNotFound
}

func (s *memStore) GetByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return a, nil
}

func (s *memStore) List(_ context.Context, limit, offset int) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return repository.ErrEmailTaken
		}
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	a.PasswordHash = hash
	s.accounts[id] = a
	delete(s.tokens, id)
	return nil
}

func (s *memStore) UpdateRoleAndTier(_ context.Context, id string, role models.Role, tier models.AdminTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Role, a.AdminTier = role, tier
	s.accounts[id] = a
	return nil
}

func (s *memStore) UpdateEmail(_ context.Context, id string, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	for _, other := range s.accounts {
		if other.ID != id && other.Email == email {
			return repository.ErrEmailTaken
		}
	}
	a.Email = email
	s.accounts[id] = a
	delete(s.tokens, id)
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrAccountNotFound
	}
	delete(s.accounts, id)
	delete(s.tokens, id)
	return nil
}

func (s *memStore) Replace(_ context.Context, token models.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.tokens[token.AccountID] = token
	return nil
}

func (s *memStore) FindBySecretHash(_ context.Context, secretHash []byte) (models.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if bytes.Equal(t.SecretHash, secretHash) {
			return t, nil
		}
	}
	return models.ResetToken{}, repository.ErrResetTokenNotFound
}

func (s *memStore) Redeem(_ context.Context, tokenID string, accountID string, passwordHash []byte, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[accountID]
	if !ok || t.ID != tokenID || t.Used || !now.Before(t.ExpiresAt) {
		return repository.ErrResetTokenNotFound
	}
	a, ok := s.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	t.Used = true
	t.UsedAt = &now
	s.tokens[accountID] = t
	a.PasswordHash = passwordHash
	s.accounts[accountID] = a
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteByAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accountID)
	return nil
}

func (s *memStore) token(accountID string) (models.ResetToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[accountID]
	return t, ok
}

func (s *memStore) account(id string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

type sentMail struct {
	kind   string
	to     string
	secret string
	link   string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, toEmail, secret, recoveryLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: mailKindReset, to: toEmail, secret: secret, link: recoveryLink})
	return nil
}

func (m *fakeMailer) SendPasswordChangedNotification(_ context.Context, toEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: mailKindChanged, to: toEmail})
	return nil
}

func (m *fakeMailer) resets() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.kind == mailKindReset {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
