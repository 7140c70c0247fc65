package model

import "strings"

// Role is the organisational role stored in profiles.role.  Privilege for
// administration actions is ordered ADMIN > CHIEF > ADVISOR, but visit
// scope is area based and not derived from that order.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleChief   Role = "CHIEF"
	RoleAdvisor Role = "ADVISOR"
)

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleChief, RoleAdvisor:
		return true
	}
	return false
}

// CanManageVisits reports whether the role may schedule and reassign visits.
func (r Role) CanManageVisits() bool { return r == RoleAdmin || r == RoleChief }
