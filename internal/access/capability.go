// Package access decides what an account may do. Every function is pure and
// total: malformed roles or tiers degrade to the most restrictive answer.
package access

import (
	"math/bits"
	"strings"
)

// Capability is a single named permission. Values are bit flags so a
// PermissionSet is a plain bitmask.
type Capability uint16

const (
	CreateAccounts Capability = 1 << iota
	EditAccounts
	DeleteAccounts
	ViewAllAccounts
	ManageAppointments
	ViewReports
	ManageSystemSettings
	ViewClinicalRecords
	EditClinicalRecords
	ManageOwnPets
	BookAppointments

	capabilityEnd
)

var capabilityNames = map[Capability]string{
	CreateAccounts:       "create_accounts",
	EditAccounts:         "edit_accounts",
	DeleteAccounts:       "delete_accounts",
	ViewAllAccounts:      "view_all_accounts",
	ManageAppointments:   "manage_appointments",
	ViewReports:          "view_reports",
	ManageSystemSettings: "manage_system_settings",
	ViewClinicalRecords:  "view_clinical_records",
	EditClinicalRecords:  "edit_clinical_records",
	ManageOwnPets:        "manage_own_pets",
	BookAppointments:     "book_appointments",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCapability maps a wire name back to its flag.
func ParseCapability(name string) (Capability, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range capabilityNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// PermissionSet is the set of capabilities granted to a (role, tier) pair.
type PermissionSet uint16

const allCapabilities = PermissionSet(capabilityEnd - 1)

func NewPermissionSet(caps ...Capability) PermissionSet {
	var s PermissionSet
	for _, c := range caps {
		s |= PermissionSet(c)
	}
	return s & allCapabilities
}

func (s PermissionSet) Has(c Capability) bool {
	if c == 0 || PermissionSet(c)&^allCapabilities != 0 {
		return false
	}
	return s&PermissionSet(c) == PermissionSet(c)
}

func (s PermissionSet) With(caps ...Capability) PermissionSet {
	return s | NewPermissionSet(caps...)
}

func (s PermissionSet) Len() int {
	return bits.OnesCount16(uint16(s & allCapabilities))
}

func (s PermissionSet) Empty() bool {
	return s&allCapabilities == 0
}

// Capabilities returns the members in declaration order.
func (s PermissionSet) Capabilities() []Capability {
	out := make([]Capability, 0, s.Len())
	for c := Capability(1); c < capabilityEnd; c <<= 1 {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s PermissionSet) Names() []string {
	caps := s.Capabilities()
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.String())
	}
	return names
}
