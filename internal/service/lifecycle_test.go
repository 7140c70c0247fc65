package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
)

func schedulePayload(advisorID string) policy.SchedulePayload {
	return policy.SchedulePayload{
		AdvisorID:   advisorID,
		ObjectiveID: "obj",
		VisitTypeID: "vt",
		VisitDate:   "2025-05-12",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Notes:       "bring the contract",
	}
}

func TestSchedule_AuditRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.lc.Schedule(ctx, ventasChief, schedulePayload("adv1"))
	require.NoError(t, err)
	require.NoError(t, out.Warning)
	assert.Equal(t, model.StatusScheduled, out.Visit.Status)
	assert.Equal(t, "chief-v", out.Visit.AssignedByID)
	assert.Equal(t, "bring the contract", *out.Visit.Notes)

	entries := f.auditOf(t, out.Visit.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCreate, entries[0].Action)
	assert.Nil(t, entries[0].OldStatus)
	require.NotNil(t, entries[0].NewStatus)
	assert.Equal(t, model.StatusScheduled, *entries[0].NewStatus)
	assert.Equal(t, "chief-v", *entries[0].ChangedByID)

	assert.Equal(t, []model.AuditAction{model.ActionCreate}, f.events.actions())
}

func TestSchedule_InvalidTimesRejectedBeforeStore(t *testing.T) {
	// No stores at all: any store call would panic.
	lc := NewLifecycle(Deps{Clock: FixedClock{T: baseNow}})

	p := schedulePayload("adv1")
	p.StartTime, p.EndTime = "14:00", "13:00"
	_, err := lc.Schedule(context.Background(), ventasChief, p)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "end_time", verr.Field)
}

func TestSchedule_Denials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lc.Schedule(ctx, adv1Actor, schedulePayload("adv1"))
	assert.True(t, model.IsDenied(err, model.DenyWrongRole))

	_, err = f.lc.Schedule(ctx, ventasChief, schedulePayload("adv3"))
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))

	_, err = f.lc.Schedule(ctx, ventasChief, schedulePayload("drifter"))
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))

	visits, err := f.store.ListVisits(ctx, model.VisitFilter{})
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestSchedule_ReferenceChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var verr *model.ValidationError

	_, err := f.lc.Schedule(ctx, adminActor, schedulePayload("ghost"))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "advisor_id", verr.Field)

	_, err = f.lc.Schedule(ctx, adminActor, schedulePayload("chief-s"))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "advisor_id", verr.Field)

	p := schedulePayload("adv3")
	p.ObjectiveID = "nope"
	_, err = f.lc.Schedule(ctx, adminActor, p)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "objective_id", verr.Field)

	p = schedulePayload("adv3")
	p.VisitDate = "2025-05-09"
	_, err = f.lc.Schedule(ctx, adminActor, p)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "visit_date", verr.Field)
}

func TestExecute_Window(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "yesterday", "adv1", "2025-05-09", "09:00", "10:00")
	f.putVisit(t, "tomorrow", "adv1", "2025-05-11", "09:00", "10:00")
	f.putVisit(t, "later-today", "adv1", "2025-05-10", "18:00", "19:00")

	out, err := f.lc.Execute(ctx, adv1Actor, "yesterday")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, out.Visit.Status)
	entries := f.auditOf(t, "yesterday")
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionExecute, entries[0].Action)
	assert.Equal(t, model.StatusScheduled, *entries[0].OldStatus)
	assert.Equal(t, model.StatusCompleted, *entries[0].NewStatus)

	_, err = f.lc.Execute(ctx, adv1Actor, "tomorrow")
	assert.True(t, model.IsDenied(err, model.DenyOutOfWindow))
	v, err := f.store.GetVisit(ctx, "tomorrow")
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, v.Status)
	assert.Empty(t, f.auditOf(t, "tomorrow"))

	// Executable from 00:00 of its date, before its start time.
	_, err = f.lc.Execute(ctx, adv1Actor, "later-today")
	assert.NoError(t, err)
}

func TestExecute_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.lc.Execute(context.Background(), adminActor, "missing")
	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "visit", nf.Entity)
}

func TestCancel_CompletedAlwaysDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-09", "09:00", "10:00")
	_, err := f.lc.Execute(ctx, adv1Actor, "v1")
	require.NoError(t, err)

	for _, actor := range []model.Actor{adminActor, ventasChief, adv1Actor} {
		_, err := f.lc.Cancel(ctx, actor, "v1", policy.CancelPayload{CancelReasonID: "cr"})
		assert.True(t, model.IsDenied(err, model.DenyWrongState), actor.Role)
	}
	assert.Len(t, f.auditOf(t, "v1"), 1)
}

func TestCancel_ReasonRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-12", "09:00", "10:00")
	var verr *model.ValidationError

	_, err := f.lc.Cancel(ctx, adv1Actor, "v1", policy.CancelPayload{CancelReasonID: "  "})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "cancel_reason_id", verr.Field)

	_, err = f.lc.Cancel(ctx, adv1Actor, "v1", policy.CancelPayload{CancelReasonID: "unknown"})
	require.True(t, errors.As(err, &verr))

	out, err := f.lc.Cancel(ctx, adv1Actor, "v1", policy.CancelPayload{CancelReasonID: "cr", Notes: "client ill"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Visit.Status)
	assert.Equal(t, "cr", *out.Visit.CancelReasonID)
	assert.Equal(t, "client ill", *out.Visit.Notes)

	entries := f.auditOf(t, "v1")
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCancel, entries[0].Action)
}

func TestReassign_SameAdvisorRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-12", "09:00", "10:00")

	_, err := f.lc.Reassign(ctx, ventasChief, "v1", policy.ReassignPayload{AdvisorID: "adv1"})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "advisor_id", verr.Field)
	assert.Empty(t, f.auditOf(t, "v1"))
}

func TestReassign_AdvisorAlwaysWrongRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-12", "09:00", "10:00")

	_, err := f.lc.Reassign(ctx, adv1Actor, "v1", policy.ReassignPayload{AdvisorID: "adv2"})
	assert.True(t, model.IsDenied(err, model.DenyWrongRole))
	_, err = f.lc.Reassign(ctx, adv2Actor, "missing", policy.ReassignPayload{AdvisorID: "adv1"})
	assert.True(t, model.IsDenied(err, model.DenyWrongRole))
}

func TestReassign_Audit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-12", "09:00", "10:00")

	out, err := f.lc.Reassign(ctx, ventasChief, "v1", policy.ReassignPayload{AdvisorID: "adv2"})
	require.NoError(t, err)
	assert.Equal(t, "adv2", out.Visit.AdvisorID)
	assert.Equal(t, model.StatusScheduled, out.Visit.Status)

	entries := f.auditOf(t, "v1")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, model.ActionReassign, e.Action)
	assert.Nil(t, e.OldStatus)
	assert.Nil(t, e.NewStatus)
	assert.Equal(t, "adv1", *e.OldAdvisorID)
	assert.Equal(t, "adv2", *e.NewAdvisorID)

	// The admin may move it across areas; the chief then loses sight of it.
	_, err = f.lc.Reassign(ctx, adminActor, "v1", policy.ReassignPayload{AdvisorID: "adv3"})
	require.NoError(t, err)
	_, err = f.lc.Cancel(ctx, ventasChief, "v1", policy.CancelPayload{CancelReasonID: "cr"})
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
}

func TestChiefScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "ventas-1", "adv1", "2025-05-09", "09:00", "10:00")
	f.putVisit(t, "ventas-2", "adv1", "2025-05-12", "09:00", "10:00")
	f.putVisit(t, "ventas-3", "adv1", "2025-05-12", "11:00", "12:00")
	f.putVisit(t, "soporte-1", "adv3", "2025-05-09", "09:00", "10:00")
	f.putVisit(t, "soporte-2", "adv3", "2025-05-12", "09:00", "10:00")

	_, err := f.lc.Execute(ctx, ventasChief, "ventas-1")
	assert.NoError(t, err)
	_, err = f.lc.Cancel(ctx, ventasChief, "ventas-2", policy.CancelPayload{CancelReasonID: "cr"})
	assert.NoError(t, err)
	_, err = f.lc.Reassign(ctx, ventasChief, "ventas-3", policy.ReassignPayload{AdvisorID: "adv2"})
	assert.NoError(t, err)

	_, err = f.lc.Execute(ctx, ventasChief, "soporte-1")
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
	_, err = f.lc.Cancel(ctx, ventasChief, "soporte-2", policy.CancelPayload{CancelReasonID: "cr"})
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
	_, err = f.lc.Reassign(ctx, ventasChief, "soporte-2", policy.ReassignPayload{AdvisorID: "adv2"})
	assert.True(t, model.IsDenied(err, model.DenyOutOfScope))
}

func TestExpireOverdue_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")
	f.putVisit(t, "this-morning", "adv3", "2025-05-10", "08:00", "11:59")
	f.putVisit(t, "running", "adv1", "2025-05-10", "11:00", "13:00")
	f.putVisit(t, "future", "adv2", "2025-05-12", "09:00", "10:00")

	n, err := f.lc.ExpireOverdue(ctx, baseNow)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, id := range []string{"old", "this-morning"} {
		v, err := f.store.GetVisit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, v.Status)
		entries := f.auditOf(t, id)
		require.Len(t, entries, 1)
		assert.Equal(t, model.ActionExpire, entries[0].Action)
		assert.Nil(t, entries[0].ChangedByID)
	}

	n, err = f.lc.ExpireOverdue(ctx, baseNow)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.auditOf(t, "old"), 1)
	assert.Empty(t, f.auditOf(t, "running"))
}

func TestExpireOverdue_Lock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")

	free := &stubLocker{ok: true}
	f.deps.Locker = free
	f.rebuild()
	n, err := f.lc.ExpireOverdue(ctx, baseNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, free.released)
}

func TestExpireOverdue_BusyLockStillSweeps(t *testing.T) {
	f := newFixture(t)
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")
	busy := &stubLocker{ok: false}
	f.deps.Locker = busy
	f.rebuild()

	n, err := f.lc.ExpireOverdue(context.Background(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, busy.released)
}

func TestListVisits_BusyLockHidesOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")
	f.putVisit(t, "next", "adv1", "2025-05-12", "09:00", "10:00")
	busy := &stubLocker{ok: false}
	f.deps.Locker = busy
	f.rebuild()

	list, err := f.lc.ListVisits(ctx, adminActor, model.VisitFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "next", list[0].ID)
	assert.Equal(t, 1, busy.calls)

	old, err := f.store.GetVisit(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, old.Status)
	require.Len(t, f.auditOf(t, "old"), 1)
}

func TestExpireOverdue_LockErrorStillSweeps(t *testing.T) {
	f := newFixture(t)
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")
	f.deps.Locker = &stubLocker{err: errors.New("redis down")}
	f.rebuild()

	n, err := f.lc.ExpireOverdue(context.Background(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAuditFailureIsWarningOnly(t *testing.T) {
	f := newFixture(t)
	rec := newCountingRecorder()
	f.deps.Audit = failingAudit{f.store}
	f.deps.Metrics = rec
	f.rebuild()
	ctx := context.Background()

	out, err := f.lc.Schedule(ctx, adminActor, schedulePayload("adv3"))
	require.NoError(t, err)
	require.Error(t, out.Warning)
	assert.True(t, IsAuditWarning(out.Warning))
	assert.Nil(t, out.Audit)

	v, err := f.store.GetVisit(ctx, out.Visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, v.Status)
	assert.Empty(t, f.auditOf(t, out.Visit.ID))
	assert.Equal(t, 1, rec.auditFailed)
	assert.Equal(t, 1, rec.transitions[model.ActionCreate])
	assert.Empty(t, f.events.actions())
}

func TestListVisits_SweepsAndScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")
	f.putVisit(t, "v-ventas", "adv1", "2025-05-12", "09:00", "10:00")
	f.putVisit(t, "v-ventas-2", "adv2", "2025-05-13", "09:00", "10:00")
	f.putVisit(t, "v-soporte", "adv3", "2025-05-12", "09:00", "10:00")

	ids := func(rows []model.VisitDetail) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	rows, err := f.lc.ListVisits(ctx, ventasChief, model.VisitFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v-ventas", "v-ventas-2"}, ids(rows))

	old, err := f.store.GetVisit(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, old.Status)

	rows, err = f.lc.ListVisits(ctx, adv1Actor, model.VisitFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"v-ventas"}, ids(rows))

	rows, err = f.lc.ListVisits(ctx, adminActor, model.VisitFilter{Status: model.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(rows))

	rows, err = f.lc.ListVisits(ctx, adminActor, model.VisitFilter{Date: "2025-05-12"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v-ventas", "v-soporte"}, ids(rows))

	noArea := model.Actor{ID: "c-x", Role: model.RoleChief}
	rows, err = f.lc.ListVisits(ctx, noArea, model.VisitFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.lc.ListVisits(ctx, adminActor, model.VisitFilter{Date: "12/05/2025"})
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestExecute_AfterSweepIsWrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "v1", "adv1", "2025-05-09", "09:00", "10:00")

	// The sweep got there first.
	v, err := f.store.GetVisit(ctx, "v1")
	require.NoError(t, err)
	ok, err := f.store.CancelVisit(ctx, v.ID, nil, nil, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.lc.Execute(ctx, adv1Actor, "v1")
	assert.True(t, model.IsDenied(err, model.DenyWrongState))
}

func TestTriggerSweep_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVisit(t, "old", "adv1", "2025-05-01", "09:00", "10:00")

	_, err := f.lc.TriggerSweep(ctx, ventasChief)
	assert.True(t, model.IsDenied(err, model.DenyWrongRole))
	v, err := f.store.GetVisit(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, v.Status)

	n, err := f.lc.TriggerSweep(ctx, adminActor)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
