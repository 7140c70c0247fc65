// Package policy holds the visit and directory authorization rules.  Every
// function is a pure decision over values the caller has already loaded:
// nil means allowed, otherwise a *model.DeniedError or
// *model.ValidationError explains the refusal.
package policy

import (
	"github.com/iliyamo/visit-management/internal/model"
)

// InScope reports whether the actor can see v.  ADMIN sees every visit,
// CHIEF the visits of advisors in their area and ADVISOR their own.
func InScope(a model.Actor, v model.Visit) bool {
	switch a.Role {
	case model.RoleAdmin:
		return true
	case model.RoleChief:
		return a.AreaID != nil && v.AdvisorAreaID != nil && *a.AreaID == *v.AdvisorAreaID
	case model.RoleAdvisor:
		return v.AdvisorID == a.ID
	}
	return false
}

// CanView denies out-of-scope visits.
func CanView(a model.Actor, v model.Visit) error {
	if !InScope(a, v) {
		return model.Deny(model.DenyOutOfScope)
	}
	return nil
}

// CanManageVisits is the role gate for schedule and reassign.  It runs
// before scope so an ADVISOR is refused with WrongRole even on their own
// visits.
func CanManageVisits(a model.Actor) error {
	if !a.Role.CanManageVisits() {
		return model.Deny(model.DenyWrongRole)
	}
	return nil
}

// CanAssignAdvisor decides whether advisor may receive a visit from a.  The
// target must hold the ADVISOR role and, for a CHIEF, belong to the chief's
// area.
func CanAssignAdvisor(a model.Actor, advisor model.Profile) error {
	if err := CanManageVisits(a); err != nil {
		return err
	}
	if advisor.Role != model.RoleAdvisor {
		return model.Invalid("advisor_id", "must reference an advisor")
	}
	if a.Role == model.RoleChief && !advisor.InArea(a.AreaID) {
		return model.Deny(model.DenyOutOfScope)
	}
	return nil
}

// CanExecute allows any in-scope actor to complete a SCHEDULED visit from
// 00:00 of its date onwards.  Dates are compared as calendar days only.
func CanExecute(a model.Actor, v model.Visit, today string) error {
	if err := CanView(a, v); err != nil {
		return err
	}
	if v.Status != model.StatusScheduled {
		return model.Deny(model.DenyWrongState)
	}
	if v.VisitDate > today {
		return model.Deny(model.DenyOutOfWindow)
	}
	return nil
}

// CanCancel allows any in-scope actor to cancel a SCHEDULED visit.
func CanCancel(a model.Actor, v model.Visit) error {
	if err := CanView(a, v); err != nil {
		return err
	}
	if v.Status != model.StatusScheduled {
		return model.Deny(model.DenyWrongState)
	}
	return nil
}

// CanReassign checks the visit side of a reassignment: role, scope and
// state.  Use CanReassignTo once the new advisor is loaded.
func CanReassign(a model.Actor, v model.Visit) error {
	if err := CanManageVisits(a); err != nil {
		return err
	}
	if err := CanView(a, v); err != nil {
		return err
	}
	if v.Status != model.StatusScheduled {
		return model.Deny(model.DenyWrongState)
	}
	return nil
}

// CanReassignTo rejects no-op reassignments and advisors the actor may not
// assign.
func CanReassignTo(a model.Actor, v model.Visit, newAdvisor model.Profile) error {
	if newAdvisor.ID == v.AdvisorID {
		return model.Invalid("advisor_id", "must differ from the current advisor")
	}
	return CanAssignAdvisor(a, newAdvisor)
}

// CanAdministerDirectory gates role changes, area assignment and area
// maintenance.  Only ADMIN qualifies.
func CanAdministerDirectory(a model.Actor) error {
	if a.Role != model.RoleAdmin {
		return model.Deny(model.DenyWrongRole)
	}
	return nil
}

// CanAdministerProfile gates role and area changes on target.  Only ADMIN
// qualifies and never on their own profile.
func CanAdministerProfile(a model.Actor, target model.Profile) error {
	if err := CanAdministerDirectory(a); err != nil {
		return err
	}
	if a.ID == target.ID {
		return model.ErrSelfModification
	}
	return nil
}

// CanListProfiles allows ADMIN and CHIEF to browse users and advisors.
func CanListProfiles(a model.Actor) error {
	if !a.Role.CanManageVisits() {
		return model.Deny(model.DenyWrongRole)
	}
	return nil
}

// CanDeleteProfile applies the deletion rules: nobody deletes themselves,
// ADMIN deletes anyone else, CHIEF deletes only advisors of their own area.
func CanDeleteProfile(a model.Actor, target model.Profile) error {
	if a.ID == target.ID {
		return model.ErrSelfDeletion
	}
	switch a.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleChief:
		if target.Role != model.RoleAdvisor {
			return model.Deny(model.DenyWrongRole)
		}
		if !target.InArea(a.AreaID) {
			return model.Deny(model.DenyOutOfScope)
		}
		return nil
	}
	return model.Deny(model.DenyWrongRole)
}
