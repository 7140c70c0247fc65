package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
)

// Outcome is the result of a successful transition.  Audit is nil and
// Warning holds a *model.AuditWriteFailedError when the visit changed but
// its audit entry could not be stored.
type Outcome struct {
	Visit   model.Visit
	Audit   *model.AuditEntry
	Warning error
}

// Lifecycle runs visit transitions: validate, authorize, mutate, audit.
// Validation and policy failures return before any write.  The audit
// append is best effort and never undoes the mutation.
type Lifecycle struct {
	profiles ProfileStore
	visits   VisitStore
	audit    AuditStore
	catalog  CatalogStore
	clock    Clock
	log      *zap.Logger
	events   AuditPublisher
	locker   SweepLocker
	metrics  Recorder
	newID    func() string
}

func NewLifecycle(d Deps) *Lifecycle {
	d = d.withDefaults()
	return &Lifecycle{
		profiles: d.Profiles,
		visits:   d.Visits,
		audit:    d.Audit,
		catalog:  d.Catalog,
		clock:    d.Clock,
		log:      d.Logger,
		events:   d.Events,
		locker:   d.Locker,
		metrics:  d.Metrics,
		newID:    uuid.NewString,
	}
}

func (l *Lifecycle) deny(actor model.Actor, err error) (Outcome, error) {
	observeDenial(l.metrics, l.log, actor, err)
	return Outcome{}, err
}

// Schedule creates a SCHEDULED visit for an advisor.
func (l *Lifecycle) Schedule(ctx context.Context, actor model.Actor, p policy.SchedulePayload) (Outcome, error) {
	if err := policy.CanManageVisits(actor); err != nil {
		return l.deny(actor, err)
	}
	now := l.clock.Now()
	p, err := policy.ValidateSchedule(p, today(now))
	if err != nil {
		return Outcome{}, err
	}
	advisor, err := l.profiles.GetProfile(ctx, p.AdvisorID)
	if err != nil {
		return Outcome{}, referenceOr(err, "advisor_id")
	}
	if err := policy.CanAssignAdvisor(actor, advisor); err != nil {
		return l.deny(actor, err)
	}
	if _, err := l.catalog.GetObjective(ctx, p.ObjectiveID); err != nil {
		return Outcome{}, referenceOr(err, "objective_id")
	}
	if _, err := l.catalog.GetVisitType(ctx, p.VisitTypeID); err != nil {
		return Outcome{}, referenceOr(err, "visit_type_id")
	}

	at := now.UTC()
	v := model.Visit{
		ID:            l.newID(),
		AdvisorID:     advisor.ID,
		AssignedByID:  actor.ID,
		ObjectiveID:   p.ObjectiveID,
		VisitTypeID:   p.VisitTypeID,
		VisitDate:     p.VisitDate,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Status:        model.StatusScheduled,
		Notes:         optional(p.Notes),
		CreatedAt:     at,
		UpdatedAt:     at,
		AdvisorAreaID: advisor.AreaID,
	}
	if err := l.visits.InsertVisit(ctx, v); err != nil {
		return Outcome{}, storageErr(err)
	}
	out := Outcome{Visit: v}
	l.record(ctx, &out, model.AuditEntry{
		VisitID:     v.ID,
		Action:      model.ActionCreate,
		ChangedByID: &actor.ID,
		NewStatus:   model.StatusScheduled.Ptr(),
	})
	return out, nil
}

// Execute marks a visit COMPLETED.  It is allowed from the visit's date
// onwards.
func (l *Lifecycle) Execute(ctx context.Context, actor model.Actor, visitID string) (Outcome, error) {
	v, err := l.visits.GetVisit(ctx, visitID)
	if err != nil {
		return Outcome{}, notFoundOr(err, "visit", visitID)
	}
	now := l.clock.Now()
	if err := policy.CanExecute(actor, v, today(now)); err != nil {
		return l.deny(actor, err)
	}
	at := now.UTC()
	ok, err := l.visits.CompleteVisit(ctx, v.ID, at)
	if err != nil {
		return Outcome{}, storageErr(err)
	}
	if !ok {
		return l.deny(actor, model.Deny(model.DenyWrongState))
	}
	v.Status = model.StatusCompleted
	v.UpdatedAt = at
	out := Outcome{Visit: v}
	l.record(ctx, &out, model.AuditEntry{
		VisitID:     v.ID,
		Action:      model.ActionExecute,
		ChangedByID: &actor.ID,
		OldStatus:   model.StatusScheduled.Ptr(),
		NewStatus:   model.StatusCompleted.Ptr(),
	})
	return out, nil
}

// Cancel marks a visit CANCELLED with a reason.  Empty notes keep the
// notes already on the visit.
func (l *Lifecycle) Cancel(ctx context.Context, actor model.Actor, visitID string, p policy.CancelPayload) (Outcome, error) {
	v, err := l.visits.GetVisit(ctx, visitID)
	if err != nil {
		return Outcome{}, notFoundOr(err, "visit", visitID)
	}
	if err := policy.CanCancel(actor, v); err != nil {
		return l.deny(actor, err)
	}
	p, err = policy.ValidateCancel(p)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := l.catalog.GetCancelReason(ctx, p.CancelReasonID); err != nil {
		return Outcome{}, referenceOr(err, "cancel_reason_id")
	}
	at := l.clock.Now().UTC()
	notes := optional(p.Notes)
	ok, err := l.visits.CancelVisit(ctx, v.ID, &p.CancelReasonID, notes, at)
	if err != nil {
		return Outcome{}, storageErr(err)
	}
	if !ok {
		return l.deny(actor, model.Deny(model.DenyWrongState))
	}
	v.Status = model.StatusCancelled
	v.CancelReasonID = &p.CancelReasonID
	if notes != nil {
		v.Notes = notes
	}
	v.UpdatedAt = at
	out := Outcome{Visit: v}
	l.record(ctx, &out, model.AuditEntry{
		VisitID:     v.ID,
		Action:      model.ActionCancel,
		ChangedByID: &actor.ID,
		OldStatus:   model.StatusScheduled.Ptr(),
		NewStatus:   model.StatusCancelled.Ptr(),
	})
	return out, nil
}

// Reassign hands a SCHEDULED visit to another advisor.  Only CHIEF and
// ADMIN may reassign; the check runs before the visit is even loaded.
func (l *Lifecycle) Reassign(ctx context.Context, actor model.Actor, visitID string, p policy.ReassignPayload) (Outcome, error) {
	if err := policy.CanManageVisits(actor); err != nil {
		return l.deny(actor, err)
	}
	p, err := policy.ValidateReassign(p)
	if err != nil {
		return Outcome{}, err
	}
	v, err := l.visits.GetVisit(ctx, visitID)
	if err != nil {
		return Outcome{}, notFoundOr(err, "visit", visitID)
	}
	if err := policy.CanReassign(actor, v); err != nil {
		return l.deny(actor, err)
	}
	advisor, err := l.profiles.GetProfile(ctx, p.AdvisorID)
	if err != nil {
		return Outcome{}, referenceOr(err, "advisor_id")
	}
	if err := policy.CanReassignTo(actor, v, advisor); err != nil {
		return l.deny(actor, err)
	}
	at := l.clock.Now().UTC()
	prev := v.AdvisorID
	ok, err := l.visits.ReassignVisit(ctx, v.ID, prev, advisor.ID, at)
	if err != nil {
		return Outcome{}, storageErr(err)
	}
	if !ok {
		return l.deny(actor, model.Deny(model.DenyWrongState))
	}
	v.AdvisorID = advisor.ID
	v.AdvisorAreaID = advisor.AreaID
	v.UpdatedAt = at
	out := Outcome{Visit: v}
	l.record(ctx, &out, model.AuditEntry{
		VisitID:      v.ID,
		Action:       model.ActionReassign,
		ChangedByID:  &actor.ID,
		OldAdvisorID: &prev,
		NewAdvisorID: &advisor.ID,
	})
	return out, nil
}

// ExpireOverdue cancels every SCHEDULED visit whose slot ended before now
// and records one EXPIRE entry per visit it actually moved.  Running it
// again, or concurrently, finds nothing left to do.  The sweep lock only
// serialises sweeps: when it is busy or unreachable the sweep still runs,
// since the conditional cancel lets exactly one caller move each visit.
func (l *Lifecycle) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	if l.locker != nil {
		release, ok, err := l.locker.Acquire(ctx)
		switch {
		case err != nil:
			l.log.Warn("sweep lock unavailable", zap.Error(err))
		case !ok:
			l.log.Debug("sweep lock busy, sweeping unlocked")
		default:
			defer release()
		}
	}

	due, err := l.visits.ListExpirable(ctx, today(now), clockOf(now))
	if err != nil {
		return 0, storageErr(err)
	}
	at := now.UTC()
	var (
		count    int
		firstErr error
	)
	for _, v := range due {
		ok, err := l.visits.CancelVisit(ctx, v.ID, nil, nil, at)
		if err != nil {
			if firstErr == nil {
				firstErr = storageErr(err)
			}
			continue
		}
		if !ok {
			// Another caller moved it first.
			continue
		}
		count++
		var out Outcome
		l.record(ctx, &out, model.AuditEntry{
			VisitID:   v.ID,
			Action:    model.ActionExpire,
			OldStatus: model.StatusScheduled.Ptr(),
			NewStatus: model.StatusCancelled.Ptr(),
		})
	}
	if count > 0 {
		l.metrics.Expired(count)
		l.log.Info("expired overdue visits", zap.Int("count", count))
	}
	return count, firstErr
}

// TriggerSweep runs ExpireOverdue on behalf of an administrator.
func (l *Lifecycle) TriggerSweep(ctx context.Context, actor model.Actor) (int, error) {
	if err := policy.CanAdministerDirectory(actor); err != nil {
		observeDenial(l.metrics, l.log, actor, err)
		return 0, err
	}
	return l.ExpireOverdue(ctx, l.clock.Now())
}

// ListVisits returns the actor's visits, newest first.  It sweeps overdue
// visits first; a failed sweep is logged and the listing continues.  The
// status filter defaults to SCHEDULED.
func (l *Lifecycle) ListVisits(ctx context.Context, actor model.Actor, f model.VisitFilter) ([]model.VisitDetail, error) {
	if f.Date != "" {
		if _, err := time.Parse(model.DateLayout, f.Date); err != nil {
			return nil, model.Invalid("date", "must match "+model.DateLayout)
		}
	}
	if _, err := l.ExpireOverdue(ctx, l.clock.Now()); err != nil {
		l.log.Warn("expire overdue visits", zap.Error(err))
	}
	if f.Status == "" {
		f.Status = model.StatusScheduled
	}
	f, empty, err := scopeFilter(actor, f)
	if err != nil {
		observeDenial(l.metrics, l.log, actor, err)
		return nil, err
	}
	if empty {
		return []model.VisitDetail{}, nil
	}
	out, err := l.visits.ListVisits(ctx, f)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// scopeFilter narrows f to what actor may see.  empty is true when the
// actor can see nothing at all, as for a chief without an area.
func scopeFilter(actor model.Actor, f model.VisitFilter) (model.VisitFilter, bool, error) {
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleChief:
		if actor.AreaID == nil {
			return f, true, nil
		}
		f.AreaID = *actor.AreaID
	case model.RoleAdvisor:
		f.AdvisorID = actor.ID
	default:
		return f, false, model.Deny(model.DenyWrongRole)
	}
	return f, false, nil
}

// record appends the audit entry for a transition that already happened
// and publishes it.  Failures only produce a warning on out.
func (l *Lifecycle) record(ctx context.Context, out *Outcome, e model.AuditEntry) {
	e.ID = l.newID()
	e.CreatedAt = l.clock.Now().UTC()
	l.metrics.Transition(e.Action)
	if err := l.audit.AppendAudit(ctx, e); err != nil {
		l.metrics.AuditFailed()
		l.log.Warn("audit append failed",
			zap.String("visit_id", e.VisitID),
			zap.String("action", string(e.Action)),
			zap.Error(err))
		out.Warning = &model.AuditWriteFailedError{VisitID: e.VisitID, Action: e.Action, Cause: err}
		return
	}
	out.Audit = &e
	if l.events == nil {
		return
	}
	if err := l.events.PublishAudit(ctx, e); err != nil {
		l.log.Warn("audit event not published",
			zap.String("visit_id", e.VisitID),
			zap.String("action", string(e.Action)),
			zap.Error(err))
	}
}

// IsAuditWarning reports whether err is the non-fatal audit failure.
func IsAuditWarning(err error) bool {
	var w *model.AuditWriteFailedError
	return errors.As(err, &w)
}
