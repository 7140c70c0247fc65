package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
)

// SystemActorLabel stands in for the email of entries written by the
// expiry sweep.
const SystemActorLabel = "system"

// History reads the audit trail.
type History struct {
	visits  VisitStore
	audit   AuditStore
	log     *zap.Logger
	metrics Recorder
}

func NewHistory(d Deps) *History {
	d = d.withDefaults()
	return &History{visits: d.Visits, audit: d.Audit, log: d.Logger, metrics: d.Metrics}
}

// ListVisitChanges returns the audited visits in the actor's scope, most
// recently changed first.  A non-empty search narrows them by advisor
// email, objective name or visit type name.
func (h *History) ListVisitChanges(ctx context.Context, actor model.Actor, search string) ([]model.VisitChangeSummary, error) {
	f, empty, err := scopeFilter(actor, model.VisitFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		observeDenial(h.metrics, h.log, actor, err)
		return nil, err
	}
	if empty {
		return []model.VisitChangeSummary{}, nil
	}
	out, err := h.audit.ListVisitChanges(ctx, f)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// VisitHistory returns the audit entries of one visit, newest first.
func (h *History) VisitHistory(ctx context.Context, actor model.Actor, visitID string) ([]model.AuditDetail, error) {
	v, err := h.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, notFoundOr(err, "visit", visitID)
	}
	if err := policy.CanView(actor, v); err != nil {
		observeDenial(h.metrics, h.log, actor, err)
		return nil, err
	}
	out, err := h.audit.ListVisitAudit(ctx, visitID)
	if err != nil {
		return nil, storageErr(err)
	}
	for i := range out {
		if out[i].ChangedByID == nil {
			out[i].ChangedByEmail = SystemActorLabel
		}
	}
	return out, nil
}
