package models

import (
	"strings"
	"time"
)

type Role string

const (
	RolePetOwner      Role = "pet_owner"
	RoleVeterinarian  Role = "veterinarian"
	RoleAdministrator Role = "administrator"
)

// Roles lists every account kind in ascending privilege order.
var Roles = []Role{RolePetOwner, RoleVeterinarian, RoleAdministrator}

func (r Role) Valid() bool {
	switch r {
	case RolePetOwner, RoleVeterinarian, RoleAdministrator:
		return true
	}
	return false
}

// AdminTier is only meaningful for administrators. The zero value means "no tier".
type AdminTier string

const (
	AdminTierNone       AdminTier = ""
	AdminTierStandard   AdminTier = "standard"
	AdminTierElevated   AdminTier = "elevated"
	AdminTierSuperAdmin AdminTier = "super_admin"
)

// AdminTiers lists every administrator tier in ascending privilege order.
var AdminTiers = []AdminTier{AdminTierStandard, AdminTierElevated, AdminTierSuperAdmin}

func (t AdminTier) Valid() bool {
	switch t {
	case AdminTierStandard, AdminTierElevated, AdminTierSuperAdmin:
		return true
	}
	return false
}

type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Role         Role
	AdminTier    AdminTier
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WellFormed reports whether the role is known and the tier is set exactly
// when the role is administrator.
func (a Account) WellFormed() bool {
	if !a.Role.Valid() {
		return false
	}
	if a.Role == RoleAdministrator {
		return a.AdminTier.Valid()
	}
	return a.AdminTier == AdminTierNone
}

func (a Account) IsSuperAdmin() bool {
	return a.Role == RoleAdministrator && a.AdminTier == AdminTierSuperAdmin
}

type ResetToken struct {
	ID           string
	AccountID    string
	AccountEmail string
	SecretHash   []byte
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Used         bool
	UsedAt       *time.Time
}

// Active reports whether the token can still be redeemed at now.
func (t ResetToken) Active(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
