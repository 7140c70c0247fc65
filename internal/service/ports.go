// Package service holds the directory, visit lifecycle, history and
// catalog use cases.  Services depend on the store ports declared here;
// internal/repository implements them on MySQL and
// internal/repository/memory in process.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	FindChiefOfArea(ctx context.Context, areaID, excludeID string) (*model.Profile, error)
	SetProfileRole(ctx context.Context, id string, role model.Role) error
	SetProfileArea(ctx context.Context, id string, areaID *string) error
	ListProfiles(ctx context.Context, q model.ProfileQuery) ([]model.Profile, error)
	// DeleteProfile returns the number of visits still referencing the
	// profile; it deletes only when that number is zero.
	DeleteProfile(ctx context.Context, id string) (int, error)
}

type AreaStore interface {
	InsertArea(ctx context.Context, a model.Area) error
	SaveArea(ctx context.Context, a model.Area) error
	GetArea(ctx context.Context, id string) (model.Area, error)
	ListAreaSummaries(ctx context.Context) ([]model.AreaSummary, error)
	// DeleteArea returns the number of profiles still in the area; it
	// deletes only when that number is zero.
	DeleteArea(ctx context.Context, id string) (int, error)
}

// VisitStore transitions report false when the row was no longer in the
// expected state, so two racing callers cannot both succeed.
type VisitStore interface {
	InsertVisit(ctx context.Context, v model.Visit) error
	GetVisit(ctx context.Context, id string) (model.Visit, error)
	ListVisits(ctx context.Context, f model.VisitFilter) ([]model.VisitDetail, error)
	CompleteVisit(ctx context.Context, id string, at time.Time) (bool, error)
	CancelVisit(ctx context.Context, id string, reasonID, notes *string, at time.Time) (bool, error)
	ReassignVisit(ctx context.Context, id, fromAdvisorID, toAdvisorID string, at time.Time) (bool, error)
	ListExpirable(ctx context.Context, today, clock string) ([]model.Visit, error)
}

type AuditStore interface {
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	ListVisitAudit(ctx context.Context, visitID string) ([]model.AuditDetail, error)
	ListVisitChanges(ctx context.Context, f model.VisitFilter) ([]model.VisitChangeSummary, error)
}

type CatalogStore interface {
	GetObjective(ctx context.Context, id string) (model.Objective, error)
	GetVisitType(ctx context.Context, id string) (model.VisitType, error)
	GetCancelReason(ctx context.Context, id string) (model.CancelReason, error)
	ListObjectives(ctx context.Context) ([]model.Objective, error)
	ListVisitTypes(ctx context.Context) ([]model.VisitType, error)
	ListCancelReasons(ctx context.Context) ([]model.CancelReason, error)
}

// AuditPublisher forwards appended audit entries to other systems.
// Delivery is best effort.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, e model.AuditEntry) error
}

// SweepLocker serialises expiry sweeps across processes.  Acquire waits a
// bounded time; ok is false when another sweep still holds the lock.
type SweepLocker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// Recorder receives operational counters.
type Recorder interface {
	Transition(action model.AuditAction)
	Denied(reason model.DenyReason)
	Expired(n int)
	AuditFailed()
}

type nopRecorder struct{}

func (nopRecorder) Transition(model.AuditAction) {}
func (nopRecorder) Denied(model.DenyReason)     {}
func (nopRecorder) Expired(int)                 {}
func (nopRecorder) AuditFailed()                {}

// Deps bundles what the services need.  Events, Locker and Metrics are
// optional.
type Deps struct {
	Profiles ProfileStore
	Areas    AreaStore
	Visits   VisitStore
	Audit    AuditStore
	Catalog  CatalogStore
	Clock    Clock
	Logger   *zap.Logger
	Events   AuditPublisher
	Locker   SweepLocker
	Metrics  Recorder
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock{Location: time.UTC}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	return d
}
