package access

import (
	"slices"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
)

var (
	petOwnerSet = NewPermissionSet(ManageOwnPets, BookAppointments)

	veterinarianSet = NewPermissionSet(ManageAppointments, ViewClinicalRecords, EditClinicalRecords)

	adminBaseSet = NewPermissionSet(
		CreateAccounts,
		EditAccounts,
		DeleteAccounts,
		ViewAllAccounts,
		ManageAppointments,
		ViewReports,
		ViewClinicalRecords,
	)

	adminWidenedSet = adminBaseSet.With(ManageSystemSettings, EditClinicalRecords)
)

// Tier differences above Elevated are expressed by the hierarchy checks, not
// by extra capabilities.
var adminTierSets = map[models.AdminTier]PermissionSet{
	models.AdminTierStandard:   adminBaseSet,
	models.AdminTierElevated:   adminWidenedSet,
	models.AdminTierSuperAdmin: adminWidenedSet,
}

var nonAdminSets = map[models.Role]PermissionSet{
	models.RolePetOwner:     petOwnerSet,
	models.RoleVeterinarian: veterinarianSet,
}

// PermissionsFor returns the capabilities of a role/tier pair. A tier on a
// non-administrator, a missing tier on an administrator, or an unknown value
// yields the empty set.
func PermissionsFor(role models.Role, tier models.AdminTier) PermissionSet {
	if role == models.RoleAdministrator {
		return adminTierSets[tier]
	}
	if tier != models.AdminTierNone {
		return 0
	}
	return nonAdminSets[role]
}

func HasCapability(actor models.Account, c Capability) bool {
	return PermissionsFor(actor.Role, actor.AdminTier).Has(c)
}

// CanManage is the hierarchy check. Super admins manage everyone; no other
// administrator may manage an administrator; non-administrators manage nobody.
func CanManage(actor, target models.Account) bool {
	if !actor.WellFormed() || actor.Role != models.RoleAdministrator {
		return false
	}
	if actor.AdminTier == models.AdminTierSuperAdmin {
		return true
	}
	switch target.Role {
	case models.RolePetOwner, models.RoleVeterinarian:
		return true
	default:
		return false
	}
}

// CreatableRoles lists the account kinds actor may provision.
func CreatableRoles(actor models.Account) []models.Role {
	if !actor.WellFormed() || actor.Role != models.RoleAdministrator {
		return []models.Role{}
	}
	if actor.AdminTier == models.AdminTierSuperAdmin {
		return append([]models.Role(nil), models.Roles...)
	}
	return []models.Role{models.RolePetOwner, models.RoleVeterinarian}
}

// AssignableTiers lists the administrator tiers actor may grant.
func AssignableTiers(actor models.Account) []models.AdminTier {
	if !actor.WellFormed() || actor.Role != models.RoleAdministrator {
		return []models.AdminTier{}
	}
	switch actor.AdminTier {
	case models.AdminTierSuperAdmin:
		return append([]models.AdminTier(nil), models.AdminTiers...)
	case models.AdminTierElevated:
		return []models.AdminTier{models.AdminTierStandard}
	default:
		return []models.AdminTier{}
	}
}

// CanAssignRole is the single gate in front of account creation and
// role/tier changes.
func CanAssignRole(actor models.Account, role models.Role, tier models.AdminTier) bool {
	if !slices.Contains(CreatableRoles(actor), role) {
		return false
	}
	if role != models.RoleAdministrator {
		return tier == models.AdminTierNone
	}
	return slices.Contains(AssignableTiers(actor), tier)
}
