// Package memory implements every store port in process memory.  It backs
// STORE_DRIVER=memory for local runs and the service and handler tests.
// Constraint behaviour mirrors the MySQL schema: one chief per area,
// conditional status updates and reference checks on delete.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository"
)

type visitRow struct {
	v   model.Visit
	seq int
}

type auditRow struct {
	e   model.AuditEntry
	seq int
}

// Store is safe for concurrent use.  Reads hand out copies.
type Store struct {
	mu            sync.RWMutex
	seq           int
	areas         map[string]model.Area
	profiles      map[string]model.Profile
	objectives    map[string]model.Objective
	visitTypes    map[string]model.VisitType
	cancelReasons map[string]model.CancelReason
	visits        map[string]*visitRow
	audit         []auditRow
}

// New returns an empty store.
func New() *Store {
	return &Store{
		areas:         make(map[string]model.Area),
		profiles:      make(map[string]model.Profile),
		objectives:    make(map[string]model.Objective),
		visitTypes:    make(map[string]model.VisitType),
		cancelReasons: make(map[string]model.CancelReason),
		visits:        make(map[string]*visitRow),
	}
}

func (s *Store) next() int {
	s.seq++
	return s.seq
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// PutProfile inserts or replaces a profile as the auth service would.  It
// honours the one-chief-per-area rule.
func (s *Store) PutProfile(p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkChiefSlot(p.ID, p.Role, p.AreaID); err != nil {
		return err
	}
	p.AreaID = cloneStr(p.AreaID)
	p.AreaName = nil
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) PutObjective(o model.Objective) {
	s.mu.Lock()
	s.objectives[o.ID] = o
	s.mu.Unlock()
}

func (s *Store) PutVisitType(t model.VisitType) {
	s.mu.Lock()
	s.visitTypes[t.ID] = t
	s.mu.Unlock()
}

func (s *Store) PutCancelReason(c model.CancelReason) {
	s.mu.Lock()
	s.cancelReasons[c.ID] = c
	s.mu.Unlock()
}

// checkChiefSlot reports ErrUniqueChief when giving profile id the role
// and area would create a second chief.  Callers hold the write lock.
func (s *Store) checkChiefSlot(id string, role model.Role, areaID *string) error {
	if role != model.RoleChief || areaID == nil {
		return nil
	}
	for _, p := range s.profiles {
		if p.ID != id && p.Role == model.RoleChief && p.AreaID != nil && *p.AreaID == *areaID {
			return repository.ErrUniqueChief
		}
	}
	return nil
}

func (s *Store) InsertArea(_ context.Context, a model.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[a.ID]; ok {
		return repository.ErrConflict
	}
	a.Description = cloneStr(a.Description)
	s.areas[a.ID] = a
	return nil
}

func (s *Store) SaveArea(_ context.Context, a model.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.areas[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name = a.Name
	cur.Description = cloneStr(a.Description)
	s.areas[a.ID] = cur
	return nil
}

func (s *Store) GetArea(_ context.Context, id string) (model.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.areas[id]
	if !ok {
		return model.Area{}, repository.ErrNotFound
	}
	a.Description = cloneStr(a.Description)
	return a, nil
}

func (s *Store) ListAreaSummaries(_ context.Context) ([]model.AreaSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AreaSummary, 0, len(s.areas))
	for _, a := range s.areas {
		sum := model.AreaSummary{Area: a}
		sum.Description = cloneStr(a.Description)
		for _, p := range s.profiles {
			if !p.InArea(&a.ID) {
				continue
			}
			switch p.Role {
			case model.RoleChief:
				sum.ChiefID = cloneStr(&p.ID)
				sum.ChiefEmail = cloneStr(&p.Email)
			case model.RoleAdvisor:
				sum.AdvisorsCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteArea(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[id]; !ok {
		return 0, repository.ErrNotFound
	}
	n := 0
	for _, p := range s.profiles {
		if p.InArea(&id) {
			n++
		}
	}
	if n > 0 {
		return n, nil
	}
	delete(s.areas, id)
	return 0, nil
}

func (s *Store) withAreaName(p model.Profile) model.Profile {
	p.AreaID = cloneStr(p.AreaID)
	p.AreaName = nil
	if p.AreaID != nil {
		if a, ok := s.areas[*p.AreaID]; ok {
			p.AreaName = cloneStr(&a.Name)
		}
	}
	return p
}

func (s *Store) GetProfile(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return s.withAreaName(p), nil
}

func (s *Store) FindChiefOfArea(_ context.Context, areaID, excludeID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID != excludeID && p.Role == model.RoleChief && p.InArea(&areaID) {
			out := s.withAreaName(p)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) SetProfileRole(_ context.Context, id string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.checkChiefSlot(id, role, p.AreaID); err != nil {
		return err
	}
	p.Role = role
	s.profiles[id] = p
	return nil
}

func (s *Store) SetProfileArea(_ context.Context, id string, areaID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if areaID != nil {
		if _, ok := s.areas[*areaID]; !ok {
			return repository.ErrConflict
		}
	}
	if err := s.checkChiefSlot(id, p.Role, areaID); err != nil {
		return err
	}
	p.AreaID = cloneStr(areaID)
	s.profiles[id] = p
	return nil
}

func (s *Store) ListProfiles(_ context.Context, q model.ProfileQuery) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Profile{}
	for _, p := range s.profiles {
		if q.Role != "" && p.Role != q.Role {
			continue
		}
		if q.AreaID != "" && !p.InArea(&q.AreaID) {
			continue
		}
		if q.ExcludeID != "" && p.ID == q.ExcludeID {
			continue
		}
		out = append(out, s.withAreaName(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Store) DeleteProfile(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return 0, repository.ErrNotFound
	}
	n := 0
	for _, r := range s.visits {
		if r.v.AdvisorID == id {
			n++
		}
		if r.v.AssignedByID == id {
			n++
		}
	}
	if n > 0 {
		return n, nil
	}
	delete(s.profiles, id)
	return 0, nil
}

func (s *Store) GetObjective(_ context.Context, id string) (model.Objective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objectives[id]
	if !ok {
		return model.Objective{}, repository.ErrNotFound
	}
	return o, nil
}

func (s *Store) GetVisitType(_ context.Context, id string) (model.VisitType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.visitTypes[id]
	if !ok {
		return model.VisitType{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetCancelReason(_ context.Context, id string) (model.CancelReason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cancelReasons[id]
	if !ok {
		return model.CancelReason{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListObjectives(_ context.Context) ([]model.Objective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Objective, 0, len(s.objectives))
	for _, o := range s.objectives {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListVisitTypes(_ context.Context) ([]model.VisitType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VisitType, 0, len(s.visitTypes))
	for _, t := range s.visitTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListCancelReasons(_ context.Context) ([]model.CancelReason, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CancelReason, 0, len(s.cancelReasons))
	for _, c := range s.cancelReasons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}
