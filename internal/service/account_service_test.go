package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

type accountFixture struct {
	svc    *AccountService
	store  *memStore
	mailer *fakeMailer
	rec    *metrics.Recorder

	owner, vet, standard, elevated, superAdmin models.Account
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	hash, err := fastHasher("Current1")
	require.NoError(t, err)

	mk := func(id, email string, role models.Role, tier models.AdminTier) models.Account {
		return models.Account{ID: id, Email: email, PasswordHash: hash, Role: role, AdminTier: tier}
	}
	f := &accountFixture{
		owner:      mk("acc-owner", "owner@x.com", models.RolePetOwner, models.AdminTierNone),
		vet:        mk("acc-vet", "vet@x.com", models.RoleVeterinarian, models.AdminTierNone),
		standard:   mk("acc-std", "std@x.com", models.RoleAdministrator, models.AdminTierStandard),
		elevated:   mk("acc-elev", "elev@x.com", models.RoleAdministrator, models.AdminTierElevated),
		superAdmin: mk("acc-super", "super@x.com", models.RoleAdministrator, models.AdminTierSuperAdmin),
		mailer:     &fakeMailer{},
		rec:        metrics.NewRecorder(),
	}
	f.store = newMemStore(f.owner, f.vet, f.standard, f.elevated, f.superAdmin)
	f.svc = NewAccountService(f.store, f.store, f.mailer, zerolog.Nop(),
		WithAccountHasher(fastHasher),
		WithAccountMetrics(f.rec),
	)
	return f
}

func TestAccountCreate(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.standard, CreateAccountInput{
		Email:       " New.Vet@X.com ",
		Password:    "Welcome12",
		DisplayName: "Dr. New",
		Role:        models.RoleVeterinarian,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "new.vet@x.com", created.Email)
	assert.Equal(t, models.RoleVeterinarian, created.Role)

	ok, err := security.VerifyPassword("Welcome12", created.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountCreateGate(t *testing.T) {
	tests := []struct {
		name  string
		actor func(*accountFixture) models.Account
		role  models.Role
		tier  models.AdminTier
		want  error
	}{
		{"owner cannot create", func(f *accountFixture) models.Account { return f.owner }, models.RolePetOwner, "", ErrUnauthorized},
		{"vet cannot create", func(f *accountFixture) models.Account { return f.vet }, models.RolePetOwner, "", ErrUnauthorized},
		{"standard cannot mint super admin", func(f *accountFixture) models.Account { return f.standard }, models.RoleAdministrator, models.AdminTierSuperAdmin, ErrUnauthorized},
		{"elevated cannot mint admins", func(f *accountFixture) models.Account { return f.elevated }, models.RoleAdministrator, models.AdminTierStandard, ErrUnauthorized},
		{"unknown role", func(f *accountFixture) models.Account { return f.superAdmin }, "receptionist", "", ErrInvalidRole},
		{"admin without tier", func(f *accountFixture) models.Account { return f.superAdmin }, models.RoleAdministrator, "", ErrInvalidTier},
		{"tier on owner", func(f *accountFixture) models.Account { return f.superAdmin }, models.RolePetOwner, models.AdminTierStandard, ErrInvalidTier},
		{"super admin mints super admin", func(f *accountFixture) models.Account { return f.superAdmin }, models.RoleAdministrator, models.AdminTierSuperAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t)
			_, err := f.svc.Create(context.Background(), tt.actor(f), CreateAccountInput{
				Email:     "fresh@x.com",
				Password:  "Welcome12",
				Role:      tt.role,
				AdminTier: tt.tier,
			})
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAccountCreateValidation(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.superAdmin, CreateAccountInput{Email: "not an email", Password: "Welcome12", Role: models.RolePetOwner})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.svc.Create(ctx, f.superAdmin, CreateAccountInput{Email: "owner@x.com", Password: "Welcome12", Role: models.RolePetOwner})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Create(ctx, f.superAdmin, CreateAccountInput{Email: "weak@x.com", Password: "weak", Role: models.RolePetOwner})
	var weak *WeakPasswordError
	assert.ErrorAs(t, err, &weak)
}

func TestAccountChangeRole(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	updated, err := f.svc.ChangeRole(ctx, f.standard, f.owner.ID, models.RoleVeterinarian, models.AdminTierNone)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVeterinarian, updated.Role)

	_, err = f.svc.ChangeRole(ctx, f.standard, f.owner.ID, models.RoleAdministrator, models.AdminTierStandard)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.ChangeRole(ctx, f.elevated, f.standard.ID, models.RolePetOwner, models.AdminTierNone)
	assert.ErrorIs(t, err, ErrUnauthorized, "elevated cannot manage another administrator")

	_, err = f.svc.ChangeRole(ctx, f.superAdmin, f.superAdmin.ID, models.RolePetOwner, models.AdminTierNone)
	assert.ErrorIs(t, err, ErrUnauthorized, "no self role change")

	promoted, err := f.svc.ChangeRole(ctx, f.superAdmin, f.standard.ID, models.RoleAdministrator, models.AdminTierElevated)
	require.NoError(t, err)
	assert.Equal(t, models.AdminTierElevated, promoted.AdminTier)

	_, err = f.svc.ChangeRole(ctx, f.superAdmin, "missing", models.RolePetOwner, models.AdminTierNone)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountChangeEmail(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Replace(ctx, models.ResetToken{ID: "tok", AccountID: f.owner.ID, SecretHash: []byte("h"), ExpiresAt: time.Now().Add(time.Hour)}))

	updated, err := f.svc.ChangeEmail(ctx, f.owner, f.owner.ID, "Owner.New@X.com")
	require.NoError(t, err)
	assert.Equal(t, "owner.new@x.com", updated.Email)
	_, ok := f.store.token(f.owner.ID)
	assert.False(t, ok)

	_, err = f.svc.ChangeEmail(ctx, f.vet, f.owner.ID, "hijack@x.com")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.ChangeEmail(ctx, f.standard, f.elevated.ID, "x@x.com")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.ChangeEmail(ctx, f.standard, f.vet.ID, "std@x.com")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.ChangeEmail(ctx, f.owner, f.owner.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestAccountRemove(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Replace(ctx, models.ResetToken{ID: "tok", AccountID: f.vet.ID, SecretHash: []byte("h"), ExpiresAt: time.Now().Add(time.Hour)}))

	assert.ErrorIs(t, f.svc.Remove(ctx, f.owner, f.vet.ID), ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Remove(ctx, f.standard, f.superAdmin.ID), ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Remove(ctx, f.superAdmin, f.superAdmin.ID), ErrUnauthorized)

	require.NoError(t, f.svc.Remove(ctx, f.standard, f.vet.ID))
	_, err := f.store.GetByID(ctx, f.vet.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, ok := f.store.token(f.vet.ID)
	assert.False(t, ok)

	require.NoError(t, f.svc.Remove(ctx, f.superAdmin, f.elevated.ID))
}

func TestAccountChangePassword(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Replace(ctx, models.ResetToken{ID: "tok", AccountID: f.owner.ID, SecretHash: []byte("h"), ExpiresAt: time.Now().Add(time.Hour)}))

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.owner, "Wrong1234", "Brandnew1"), ErrInvalidCredentials)

	var weak *WeakPasswordError
	assert.ErrorAs(t, f.svc.ChangePassword(ctx, f.owner, "Current1", "short"), &weak)

	require.NoError(t, f.svc.ChangePassword(ctx, f.owner, "Current1", "Brandnew1"))
	ok, err := security.VerifyPassword("Brandnew1", f.store.account(f.owner.ID).PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, tokenLeft := f.store.token(f.owner.ID)
	assert.False(t, tokenLeft)
	assert.Equal(t, 1, f.mailer.count(mailKindChanged))
}

func TestAccountList(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, f.vet, 0, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	all, err := f.svc.List(ctx, f.standard, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := f.svc.List(ctx, f.standard, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestAccountDescribe(t *testing.T) {
	f := newAccountFixture(t)

	summary := f.svc.Describe(f.elevated)
	assert.Contains(t, summary.Capabilities, "manage_system_settings")
	assert.ElementsMatch(t, []models.Role{models.RolePetOwner, models.RoleVeterinarian}, summary.CreatableRoles)
	assert.Equal(t, []models.AdminTier{models.AdminTierStandard}, summary.AssignableTiers)

	owner := f.svc.Describe(f.owner)
	assert.ElementsMatch(t, []string{"manage_own_pets", "book_appointments"}, owner.Capabilities)
	assert.Empty(t, owner.CreatableRoles)
	assert.Empty(t, owner.AssignableTiers)
}

func TestAccountChangePasswordStoreFailureLeavesStateUnchanged(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Replace(ctx, models.ResetToken{ID: "tok", AccountID: f.owner.ID, SecretHash: []byte("h"), ExpiresAt: time.Now().Add(time.Hour)}))
	f.store.updateErr = errors.New("connection reset")

	err := f.svc.ChangePassword(ctx, f.owner, "Current1", "Brandnew1")
	require.Error(t, err)

	ok, err := security.VerifyPassword("Current1", f.store.account(f.owner.ID).PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok, "old password still valid")
	_, tokenLeft := f.store.token(f.owner.ID)
	assert.True(t, tokenLeft)
	assert.Zero(t, f.mailer.count(mailKindChanged))
}
