package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository/memory"
)

func strp(s string) *string { return &s }

// 2025-05-10 12:00 UTC
var baseNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

var (
	adminActor   = model.Actor{ID: "admin", Role: model.RoleAdmin}
	ventasChief  = model.Actor{ID: "chief-v", Role: model.RoleChief, AreaID: strp("ventas")}
	soporteChief = model.Actor{ID: "chief-s", Role: model.RoleChief, AreaID: strp("soporte")}
	adv1Actor    = model.Actor{ID: "adv1", Role: model.RoleAdvisor, AreaID: strp("ventas")}
	adv2Actor    = model.Actor{ID: "adv2", Role: model.RoleAdvisor, AreaID: strp("ventas")}
)

type fixture struct {
	store  *memory.Store
	clock  *FixedClock
	events *capturePublisher
	deps   Deps
	lc     *Lifecycle
	dir    *Directory
	hist   *History
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.InsertArea(ctx, model.Area{ID: "ventas", Name: "Ventas"}))
	require.NoError(t, s.InsertArea(ctx, model.Area{ID: "soporte", Name: "Soporte"}))
	require.NoError(t, s.InsertArea(ctx, model.Area{ID: "empty", Name: "Empty"}))
	for _, p := range []model.Profile{
		{ID: "admin", Email: "admin@example.com", Role: model.RoleAdmin},
		{ID: "chief-v", Email: "chief.v@example.com", Role: model.RoleChief, AreaID: strp("ventas")},
		{ID: "chief-s", Email: "chief.s@example.com", Role: model.RoleChief, AreaID: strp("soporte")},
		{ID: "adv1", Email: "adv1@example.com", Role: model.RoleAdvisor, AreaID: strp("ventas")},
		{ID: "adv2", Email: "adv2@example.com", Role: model.RoleAdvisor, AreaID: strp("ventas")},
		{ID: "adv3", Email: "adv3@example.com", Role: model.RoleAdvisor, AreaID: strp("soporte")},
		{ID: "drifter", Email: "drifter@example.com", Role: model.RoleAdvisor},
	} {
		require.NoError(t, s.PutProfile(p))
	}
	s.PutObjective(model.Objective{ID: "obj", Name: "ACME", ObjectiveType: model.ObjectiveCompany})
	s.PutVisitType(model.VisitType{ID: "vt", Name: "BUSINESS"})
	s.PutCancelReason(model.CancelReason{ID: "cr", Description: "Client unavailable"})

	f := &fixture{store: s, clock: &FixedClock{T: baseNow}, events: &capturePublisher{}}
	f.deps = Deps{
		Profiles: s, Areas: s, Visits: s, Audit: s, Catalog: s,
		Clock: f.clock, Logger: zap.NewNop(), Events: f.events,
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.lc = NewLifecycle(f.deps)
	f.dir = NewDirectory(f.deps)
	f.hist = NewHistory(f.deps)
}

// putVisit stores a SCHEDULED visit directly, bypassing the date floor.
func (f *fixture) putVisit(t *testing.T, id, advisorID, date, start, end string) {
	t.Helper()
	at := baseNow.Add(-48 * time.Hour)
	require.NoError(t, f.store.InsertVisit(context.Background(), model.Visit{
		ID: id, AdvisorID: advisorID, AssignedByID: "admin", ObjectiveID: "obj", VisitTypeID: "vt",
		VisitDate: date, StartTime: start, EndTime: end, Status: model.StatusScheduled,
		CreatedAt: at, UpdatedAt: at,
	}))
}

func (f *fixture) auditOf(t *testing.T, visitID string) []model.AuditDetail {
	t.Helper()
	out, err := f.store.ListVisitAudit(context.Background(), visitID)
	require.NoError(t, err)
	return out
}

type capturePublisher struct {
	mu     sync.Mutex
	events []model.AuditEntry
}

func (p *capturePublisher) PublishAudit(_ context.Context, e model.AuditEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) actions() []model.AuditAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.AuditAction, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

// failingAudit rejects every append but still serves reads.
type failingAudit struct {
	*memory.Store
}

func (failingAudit) AppendAudit(context.Context, model.AuditEntry) error {
	return errors.New("audit table unavailable")
}

type stubLocker struct {
	ok       bool
	err      error
	released int
	calls    int
}

func (l *stubLocker) Acquire(context.Context) (func(), bool, error) {
	l.calls++
	return func() { l.released++ }, l.ok, l.err
}

type countingRecorder struct {
	mu          sync.Mutex
	transitions map[model.AuditAction]int
	denials     map[model.DenyReason]int
	expired     int
	auditFailed int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{transitions: map[model.AuditAction]int{}, denials: map[model.DenyReason]int{}}
}

func (r *countingRecorder) Transition(a model.AuditAction) {
	r.mu.Lock()
	r.transitions[a]++
	r.mu.Unlock()
}

func (r *countingRecorder) Denied(reason model.DenyReason) {
	r.mu.Lock()
	r.denials[reason]++
	r.mu.Unlock()
}

func (r *countingRecorder) Expired(n int) {
	r.mu.Lock()
	r.expired += n
	r.mu.Unlock()
}

func (r *countingRecorder) AuditFailed() {
	r.mu.Lock()
	r.auditFailed++
	r.mu.Unlock()
}
