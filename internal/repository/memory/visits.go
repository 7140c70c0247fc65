package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository"
)

// view copies a stored visit and fills in the advisor's current area.
// Callers hold at least the read lock.
func (s *Store) view(r *visitRow) model.Visit {
	v := r.v
	v.Notes = cloneStr(v.Notes)
	v.CancelReasonID = cloneStr(v.CancelReasonID)
	v.AdvisorAreaID = nil
	if p, ok := s.profiles[v.AdvisorID]; ok {
		v.AdvisorAreaID = cloneStr(p.AreaID)
	}
	return v
}

func (s *Store) matches(v model.Visit, f model.VisitFilter) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Date != "" && v.VisitDate != f.Date {
		return false
	}
	if f.AdvisorID != "" && v.AdvisorID != f.AdvisorID {
		return false
	}
	if f.AreaID != "" && (v.AdvisorAreaID == nil || *v.AdvisorAreaID != f.AreaID) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(s.profiles[v.AdvisorID].Email), q) ||
			strings.Contains(strings.ToLower(s.objectives[v.ObjectiveID].Name), q) ||
			strings.Contains(strings.ToLower(s.visitTypes[v.VisitTypeID].Name), q)
		if !hit {
			return false
		}
	}
	return true
}

// InsertVisit checks the same references the MySQL foreign keys do.
func (s *Store) InsertVisit(_ context.Context, v model.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[v.ID]; ok {
		return repository.ErrConflict
	}
	_, okA := s.profiles[v.AdvisorID]
	_, okB := s.profiles[v.AssignedByID]
	_, okO := s.objectives[v.ObjectiveID]
	_, okT := s.visitTypes[v.VisitTypeID]
	if !okA || !okB || !okO || !okT {
		return repository.ErrConflict
	}
	v.Notes = cloneStr(v.Notes)
	v.CancelReasonID = cloneStr(v.CancelReasonID)
	v.AdvisorAreaID = nil
	s.visits[v.ID] = &visitRow{v: v, seq: s.next()}
	return nil
}

func (s *Store) GetVisit(_ context.Context, id string) (model.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.visits[id]
	if !ok {
		return model.Visit{}, repository.ErrNotFound
	}
	return s.view(r), nil
}

func (s *Store) ListVisits(_ context.Context, f model.VisitFilter) ([]model.VisitDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.sortedVisits()
	out := []model.VisitDetail{}
	for _, r := range rows {
		v := s.view(r)
		if !s.matches(v, f) {
			continue
		}
		out = append(out, model.VisitDetail{
			Visit:         v,
			AdvisorEmail:  s.profiles[v.AdvisorID].Email,
			ObjectiveName: s.objectives[v.ObjectiveID].Name,
			VisitTypeName: s.visitTypes[v.VisitTypeID].Name,
		})
	}
	return out, nil
}

// sortedVisits orders rows newest first, insertion order breaking ties.
func (s *Store) sortedVisits() []*visitRow {
	rows := make([]*visitRow, 0, len(s.visits))
	for _, r := range s.visits {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].v.CreatedAt.Equal(rows[j].v.CreatedAt) {
			return rows[i].v.CreatedAt.After(rows[j].v.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	return rows
}

// scheduled returns the row for id when it is still SCHEDULED.
func (s *Store) scheduled(id string) (*visitRow, bool) {
	r, ok := s.visits[id]
	if !ok || r.v.Status != model.StatusScheduled {
		return nil, false
	}
	return r, true
}

func (s *Store) CompleteVisit(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.scheduled(id)
	if !ok {
		return false, nil
	}
	r.v.Status = model.StatusCompleted
	r.v.UpdatedAt = at
	return true, nil
}

func (s *Store) CancelVisit(_ context.Context, id string, reasonID, notes *string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.scheduled(id)
	if !ok {
		return false, nil
	}
	if reasonID != nil {
		if _, ok := s.cancelReasons[*reasonID]; !ok {
			return false, repository.ErrConflict
		}
	}
	r.v.Status = model.StatusCancelled
	r.v.CancelReasonID = cloneStr(reasonID)
	if notes != nil {
		r.v.Notes = cloneStr(notes)
	}
	r.v.UpdatedAt = at
	return true, nil
}

func (s *Store) ReassignVisit(_ context.Context, id, fromAdvisorID, toAdvisorID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.scheduled(id)
	if !ok || r.v.AdvisorID != fromAdvisorID {
		return false, nil
	}
	if _, ok := s.profiles[toAdvisorID]; !ok {
		return false, repository.ErrConflict
	}
	r.v.AdvisorID = toAdvisorID
	r.v.UpdatedAt = at
	return true, nil
}

func (s *Store) ListExpirable(_ context.Context, today, clock string) ([]model.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Visit
	for _, r := range s.visits {
		v := r.v
		if v.Status != model.StatusScheduled {
			continue
		}
		if v.VisitDate < today || (v.VisitDate == today && v.EndTime < clock) {
			out = append(out, s.view(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitDate != out[j].VisitDate {
			return out[i].VisitDate < out[j].VisitDate
		}
		return out[i].EndTime < out[j].EndTime
	})
	return out, nil
}
