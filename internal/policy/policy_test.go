package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-management/internal/model"
)

func strp(s string) *string { return &s }

var (
	areaNorth = strp("area-north")
	areaSouth = strp("area-south")

	admin      = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	chiefNorth = model.Actor{ID: "chief-n", Role: model.RoleChief, AreaID: areaNorth}
	chiefNone  = model.Actor{ID: "chief-x", Role: model.RoleChief}
	advisorA   = model.Actor{ID: "adv-a", Role: model.RoleAdvisor, AreaID: areaNorth}
	advisorB   = model.Actor{ID: "adv-b", Role: model.RoleAdvisor, AreaID: areaNorth}
)

func visitOf(advisorID string, area *string, status model.VisitStatus, date string) model.Visit {
	return model.Visit{
		ID:            "visit-1",
		AdvisorID:     advisorID,
		AssignedByID:  "chief-n",
		VisitDate:     date,
		StartTime:     "09:00",
		EndTime:       "10:00",
		Status:        status,
		AdvisorAreaID: area,
	}
}

func TestInScope(t *testing.T) {
	v := visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-05-01")
	orphan := visitOf("adv-z", nil, model.StatusScheduled, "2025-05-01")

	cases := []struct {
		name  string
		actor model.Actor
		visit model.Visit
		want  bool
	}{
		{"admin sees everything", admin, v, true},
		{"admin sees advisor without area", admin, orphan, true},
		{"chief sees own area", chiefNorth, v, true},
		{"chief other area", model.Actor{ID: "c2", Role: model.RoleChief, AreaID: areaSouth}, v, false},
		{"chief without area sees nothing", chiefNone, v, false},
		{"chief never matches null advisor area", chiefNorth, orphan, false},
		{"advisor own visit", advisorA, v, true},
		{"advisor someone else's visit", advisorB, v, false},
		{"unknown role", model.Actor{ID: "x", Role: "GUEST"}, v, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InScope(tc.actor, tc.visit))
		})
	}
}

func TestCanExecute(t *testing.T) {
	today := "2025-05-10"

	assert.NoError(t, CanExecute(advisorA, visitOf("adv-a", areaNorth, model.StatusScheduled, today), today))
	assert.NoError(t, CanExecute(chiefNorth, visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-05-01"), today))

	err := CanExecute(advisorA, visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-05-11"), today)
	assert.True(t, model.IsDenied(err, model.DenyOutOfWindow))

	err = CanExecute(advisorA, visitOf("adv-a", areaNorth, model.StatusCancelled, today), today)
	assert.True(t, model.IsDenied(err, model.DenyWrongState))

	err = CanExecute(advisorB, visitOf("adv-a", areaNorth, model.StatusScheduled, today), today)
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
}

func TestCanExecute_ScopeCheckedBeforeState(t *testing.T) {
	err := CanExecute(advisorB, visitOf("adv-a", areaNorth, model.StatusCompleted, "2025-05-01"), "2025-05-10")
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
}

func TestCanCancel(t *testing.T) {
	assert.NoError(t, CanCancel(advisorA, visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-06-01")))

	for _, st := range []model.VisitStatus{model.StatusCompleted, model.StatusCancelled, model.StatusInProgress} {
		err := CanCancel(admin, visitOf("adv-a", areaNorth, st, "2025-06-01"))
		assert.True(t, model.IsDenied(err, model.DenyWrongState), st)
	}
}

func TestCanReassign_AdvisorAlwaysWrongRole(t *testing.T) {
	err := CanReassign(advisorA, visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-06-01"))
	assert.True(t, model.IsDenied(err, model.DenyWrongRole))
}

func TestCanReassignTo(t *testing.T) {
	v := visitOf("adv-a", areaNorth, model.StatusScheduled, "2025-06-01")
	require.NoError(t, CanReassign(chiefNorth, v))

	same := model.Profile{ID: "adv-a", Role: model.RoleAdvisor, AreaID: areaNorth}
	var verr *model.ValidationError
	require.True(t, errors.As(CanReassignTo(chiefNorth, v, same), &verr))
	assert.Equal(t, "advisor_id", verr.Field)

	south := model.Profile{ID: "adv-s", Role: model.RoleAdvisor, AreaID: areaSouth}
	assert.True(t, model.IsDenied(CanReassignTo(chiefNorth, v, south), model.DenyOutOfScope))
	assert.NoError(t, CanReassignTo(admin, v, south))

	chief := model.Profile{ID: "chief-s", Role: model.RoleChief, AreaID: areaSouth}
	assert.True(t, errors.As(CanReassignTo(admin, v, chief), &verr))
}

func TestCanAssignAdvisor(t *testing.T) {
	north := model.Profile{ID: "adv-a", Role: model.RoleAdvisor, AreaID: areaNorth}
	orphan := model.Profile{ID: "adv-o", Role: model.RoleAdvisor}

	assert.NoError(t, CanAssignAdvisor(chiefNorth, north))
	assert.NoError(t, CanAssignAdvisor(admin, orphan))
	assert.True(t, model.IsDenied(CanAssignAdvisor(chiefNorth, orphan), model.DenyOutOfScope))
	assert.True(t, model.IsDenied(CanAssignAdvisor(chiefNone, orphan), model.DenyOutOfScope))
	assert.True(t, model.IsDenied(CanAssignAdvisor(advisorA, north), model.DenyWrongRole))
}

func TestCanDeleteProfile(t *testing.T) {
	advNorth := model.Profile{ID: "adv-a", Role: model.RoleAdvisor, AreaID: areaNorth}
	advSouth := model.Profile{ID: "adv-s", Role: model.RoleAdvisor, AreaID: areaSouth}
	otherChief := model.Profile{ID: "chief-s", Role: model.RoleChief, AreaID: areaSouth}

	assert.ErrorIs(t, CanDeleteProfile(admin, model.Profile{ID: "admin-1", Role: model.RoleAdmin}), model.ErrSelfDeletion)
	assert.ErrorIs(t, CanDeleteProfile(chiefNorth, model.Profile{ID: "chief-n", Role: model.RoleChief}), model.ErrSelfDeletion)

	assert.NoError(t, CanDeleteProfile(admin, otherChief))
	assert.NoError(t, CanDeleteProfile(chiefNorth, advNorth))
	assert.True(t, model.IsDenied(CanDeleteProfile(chiefNorth, advSouth), model.DenyOutOfScope))
	assert.True(t, model.IsDenied(CanDeleteProfile(chiefNorth, otherChief), model.DenyWrongRole))
	assert.True(t, model.IsDenied(CanDeleteProfile(advisorA, advisorProfile("adv-b")), model.DenyWrongRole))
}

func TestCanAdministerProfile(t *testing.T) {
	other := model.Profile{ID: "chief-s", Role: model.RoleChief, AreaID: areaSouth}

	assert.NoError(t, CanAdministerProfile(admin, other))
	assert.ErrorIs(t, CanAdministerProfile(admin, model.Profile{ID: "admin-1", Role: model.RoleAdmin}), model.ErrSelfModification)
	assert.True(t, model.IsDenied(CanAdministerProfile(chiefNorth, advisorProfile("adv-a")), model.DenyWrongRole))
	assert.True(t, model.IsDenied(CanAdministerProfile(advisorA, advisorProfile("adv-a")), model.DenyWrongRole))
}

func advisorProfile(id string) model.Profile {
	return model.Profile{ID: id, Role: model.RoleAdvisor, AreaID: areaNorth}
}

func TestCanAdministerDirectory(t *testing.T) {
	assert.NoError(t, CanAdministerDirectory(admin))
	assert.True(t, model.IsDenied(CanAdministerDirectory(chiefNorth), model.DenyWrongRole))
	assert.True(t, model.IsDenied(CanAdministerDirectory(advisorA), model.DenyWrongRole))
}
