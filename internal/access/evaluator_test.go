package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
)

func account(role models.Role, tier models.AdminTier) models.Account {
	return models.Account{ID: string(role) + "/" + string(tier), Role: role, AdminTier: tier}
}

var (
	owner      = account(models.RolePetOwner, models.AdminTierNone)
	vet        = account(models.RoleVeterinarian, models.AdminTierNone)
	standard   = account(models.RoleAdministrator, models.AdminTierStandard)
	elevated   = account(models.RoleAdministrator, models.AdminTierElevated)
	superAdmin = account(models.RoleAdministrator, models.AdminTierSuperAdmin)
)

func allPairs() []models.Account {
	roles := append([]models.Role{"", "receptionist"}, models.Roles...)
	tiers := append([]models.AdminTier{models.AdminTierNone, "root"}, models.AdminTiers...)
	out := make([]models.Account, 0, len(roles)*len(tiers))
	for _, r := range roles {
		for _, t := range tiers {
			out = append(out, account(r, t))
		}
	}
	return out
}

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		tier models.AdminTier
		want []Capability
	}{
		{"pet owner", models.RolePetOwner, models.AdminTierNone, []Capability{ManageOwnPets, BookAppointments}},
		{"veterinarian", models.RoleVeterinarian, models.AdminTierNone, []Capability{ManageAppointments, ViewClinicalRecords, EditClinicalRecords}},
		{"standard admin", models.RoleAdministrator, models.AdminTierStandard, []Capability{
			CreateAccounts, EditAccounts, DeleteAccounts, ViewAllAccounts, ManageAppointments, ViewReports, ViewClinicalRecords,
		}},
		{"elevated admin", models.RoleAdministrator, models.AdminTierElevated, []Capability{
			CreateAccounts, EditAccounts, DeleteAccounts, ViewAllAccounts, ManageAppointments, ViewReports,
			ManageSystemSettings, ViewClinicalRecords, EditClinicalRecords,
		}},
		{"super admin", models.RoleAdministrator, models.AdminTierSuperAdmin, []Capability{
			CreateAccounts, EditAccounts, DeleteAccounts, ViewAllAccounts, ManageAppointments, ViewReports,
			ManageSystemSettings, ViewClinicalRecords, EditClinicalRecords,
		}},
		{"admin without tier", models.RoleAdministrator, models.AdminTierNone, nil},
		{"admin with unknown tier", models.RoleAdministrator, "root", nil},
		{"owner carrying a tier", models.RolePetOwner, models.AdminTierSuperAdmin, nil},
		{"unknown role", "receptionist", models.AdminTierNone, nil},
		{"empty role", "", models.AdminTierNone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PermissionsFor(tt.role, tt.tier)
			if tt.want == nil {
				assert.True(t, got.Empty())
				return
			}
			assert.Equal(t, NewPermissionSet(tt.want...), got)
			assert.Len(t, got.Capabilities(), len(tt.want))
		})
	}
}

func TestPermissionsForIsDeterministicAndTotal(t *testing.T) {
	for _, a := range allPairs() {
		first := PermissionsFor(a.Role, a.AdminTier)
		for i := 0; i < 3; i++ {
			require.Equal(t, first, PermissionsFor(a.Role, a.AdminTier), a.ID)
		}
		if !a.WellFormed() {
			assert.True(t, first.Empty(), "malformed %s must fail closed", a.ID)
		}
	}
}

func TestElevatedAndSuperAdminShareCapabilities(t *testing.T) {
	assert.Equal(t,
		PermissionsFor(models.RoleAdministrator, models.AdminTierElevated),
		PermissionsFor(models.RoleAdministrator, models.AdminTierSuperAdmin),
	)
	assert.False(t, HasCapability(standard, ManageSystemSettings))
	assert.True(t, HasCapability(elevated, ManageSystemSettings))
	assert.False(t, HasCapability(owner, CreateAccounts))
	assert.False(t, HasCapability(vet, ViewAllAccounts))
}

func TestPetOwnerHasNoAdministrativeCapability(t *testing.T) {
	for _, c := range []Capability{CreateAccounts, EditAccounts, DeleteAccounts, ViewAllAccounts, ViewReports, ManageSystemSettings} {
		assert.False(t, HasCapability(owner, c), c.String())
	}
}

func TestCanManageNonAdministratorsAlwaysFalse(t *testing.T) {
	for _, actor := range allPairs() {
		if actor.Role == models.RoleAdministrator {
			continue
		}
		for _, target := range allPairs() {
			assert.False(t, CanManage(actor, target), "%s -> %s", actor.ID, target.ID)
		}
	}
}

func TestCanManageNoAdministratorEscalation(t *testing.T) {
	for _, actor := range []models.Account{standard, elevated} {
		for _, target := range []models.Account{standard, elevated, superAdmin, account(models.RoleAdministrator, models.AdminTierNone)} {
			assert.False(t, CanManage(actor, target), "%s -> %s", actor.ID, target.ID)
		}
		assert.True(t, CanManage(actor, owner))
		assert.True(t, CanManage(actor, vet))
	}
}

func TestCanManageSuperAdminManagesEveryone(t *testing.T) {
	for _, target := range []models.Account{owner, vet, standard, elevated, superAdmin} {
		assert.True(t, CanManage(superAdmin, target), target.ID)
	}
}

func TestCanManageMalformedActorDenied(t *testing.T) {
	assert.False(t, CanManage(account(models.RoleAdministrator, models.AdminTierNone), owner))
	assert.False(t, CanManage(account(models.RoleAdministrator, "root"), owner))
}

func TestCreatableRoles(t *testing.T) {
	assert.ElementsMatch(t, models.Roles, CreatableRoles(superAdmin))
	for _, actor := range []models.Account{standard, elevated} {
		roles := CreatableRoles(actor)
		assert.NotContains(t, roles, models.RoleAdministrator)
		assert.ElementsMatch(t, []models.Role{models.RolePetOwner, models.RoleVeterinarian}, roles)
	}
	assert.Empty(t, CreatableRoles(owner))
	assert.Empty(t, CreatableRoles(vet))
}

func TestCreatableRolesReturnsCopy(t *testing.T) {
	roles := CreatableRoles(superAdmin)
	roles[0] = "mutated"
	assert.Equal(t, models.RolePetOwner, models.Roles[0])
}

func TestAssignableTiers(t *testing.T) {
	assert.ElementsMatch(t, models.AdminTiers, AssignableTiers(superAdmin))
	assert.Equal(t, []models.AdminTier{models.AdminTierStandard}, AssignableTiers(elevated))
	assert.Empty(t, AssignableTiers(standard))
	assert.Empty(t, AssignableTiers(owner))
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		name  string
		actor models.Account
		role  models.Role
		tier  models.AdminTier
		want  bool
	}{
		{"standard cannot mint super admin", standard, models.RoleAdministrator, models.AdminTierSuperAdmin, false},
		{"standard cannot mint standard admin", standard, models.RoleAdministrator, models.AdminTierStandard, false},
		{"standard creates owner", standard, models.RolePetOwner, models.AdminTierNone, true},
		{"standard creates vet", standard, models.RoleVeterinarian, models.AdminTierNone, true},
		{"elevated cannot create administrators", elevated, models.RoleAdministrator, models.AdminTierStandard, false},
		{"super admin mints super admin", superAdmin, models.RoleAdministrator, models.AdminTierSuperAdmin, true},
		{"super admin mints standard", superAdmin, models.RoleAdministrator, models.AdminTierStandard, true},
		{"administrator without tier", superAdmin, models.RoleAdministrator, models.AdminTierNone, false},
		{"tier on non-admin role", superAdmin, models.RoleVeterinarian, models.AdminTierStandard, false},
		{"unknown role", superAdmin, "receptionist", models.AdminTierNone, false},
		{"unknown tier", superAdmin, models.RoleAdministrator, "root", false},
		{"owner creates nobody", owner, models.RolePetOwner, models.AdminTierNone, false},
		{"vet creates nobody", vet, models.RolePetOwner, models.AdminTierNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAssignRole(tt.actor, tt.role, tt.tier))
		})
	}
}

func TestPermissionSetHelpers(t *testing.T) {
	s := NewPermissionSet(ViewReports, CreateAccounts)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"create_accounts", "view_reports"}, s.Names())
	assert.False(t, s.Has(0))
	assert.False(t, s.Has(capabilityEnd))

	c, ok := ParseCapability(" Edit_Clinical_Records ")
	require.True(t, ok)
	assert.Equal(t, EditClinicalRecords, c)
	_, ok = ParseCapability("root")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Capability(0).String())
}
