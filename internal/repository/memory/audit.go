package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository"
)

func (s *Store) AppendAudit(_ context.Context, e model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[e.VisitID]; !ok {
		return repository.ErrConflict
	}
	s.audit = append(s.audit, auditRow{e: e, seq: s.next()})
	return nil
}

func (s *Store) email(id *string) *string {
	if id == nil {
		return nil
	}
	p, ok := s.profiles[*id]
	if !ok {
		return nil
	}
	return cloneStr(&p.Email)
}

// newestFirst orders audit rows by creation time, latest first.
func newestFirst(rows []auditRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].e.CreatedAt.Equal(rows[j].e.CreatedAt) {
			return rows[i].e.CreatedAt.After(rows[j].e.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
}

func (s *Store) ListVisitAudit(_ context.Context, visitID string) ([]model.AuditDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []auditRow
	for _, r := range s.audit {
		if r.e.VisitID == visitID {
			rows = append(rows, r)
		}
	}
	newestFirst(rows)
	out := make([]model.AuditDetail, 0, len(rows))
	for _, r := range rows {
		d := model.AuditDetail{
			AuditEntry:      r.e,
			OldAdvisorEmail: s.email(r.e.OldAdvisorID),
			NewAdvisorEmail: s.email(r.e.NewAdvisorID),
		}
		if e := s.email(r.e.ChangedByID); e != nil {
			d.ChangedByEmail = *e
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListVisitChanges(_ context.Context, f model.VisitFilter) ([]model.VisitChangeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := model.VisitFilter{AdvisorID: f.AdvisorID, AreaID: f.AreaID, Search: f.Search}
	byVisit := map[string]*model.VisitChangeSummary{}
	var order []string
	for _, r := range s.audit {
		vr, ok := s.visits[r.e.VisitID]
		if !ok {
			continue
		}
		v := s.view(vr)
		if !s.matches(v, scope) {
			continue
		}
		sum, seen := byVisit[v.ID]
		if !seen {
			sum = &model.VisitChangeSummary{
				VisitID:       v.ID,
				ObjectiveName: s.objectives[v.ObjectiveID].Name,
				VisitTypeName: s.visitTypes[v.VisitTypeID].Name,
				AdvisorEmail:  s.profiles[v.AdvisorID].Email,
				VisitDate:     v.VisitDate,
				StartTime:     v.StartTime,
				EndTime:       v.EndTime,
				CurrentStatus: v.Status,
				CreatedAt:     v.CreatedAt,
			}
			byVisit[v.ID] = sum
			order = append(order, v.ID)
		}
		sum.ChangesCount++
		if r.e.CreatedAt.After(sum.LatestChange) {
			sum.LatestChange = r.e.CreatedAt
		}
	}
	out := make([]model.VisitChangeSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byVisit[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LatestChange.After(out[j].LatestChange) })
	return out, nil
}
