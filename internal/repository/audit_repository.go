package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/visit-management/internal/model"
)

// AuditRepo appends to and reads from the visit_audit table.  Rows are
// never updated or deleted.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to db.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// AppendAudit inserts one audit entry.
func (r *AuditRepo) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visit_audit (id, visit_id, action, changed_by_id, old_status, new_status,
		                          old_advisor_id, new_advisor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.VisitID, string(e.Action), e.ChangedByID, statusArg(e.OldStatus), statusArg(e.NewStatus),
		e.OldAdvisorID, e.NewAdvisorID, e.CreatedAt.UTC())
	return translate(err)
}

func statusArg(s *model.VisitStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

// ListVisitAudit returns the audit trail of one visit, newest first, with
// profile ids resolved to emails.  ChangedByEmail is empty for sweep
// entries.
func (r *AuditRepo) ListVisitAudit(ctx context.Context, visitID string) ([]model.AuditDetail, error) {
	const q = `SELECT a.id, a.visit_id, a.action, a.changed_by_id, a.old_status, a.new_status,
	       a.old_advisor_id, a.new_advisor_id, a.created_at, cb.email, oa.email, na.email
	  FROM visit_audit a
	  LEFT JOIN profiles cb ON cb.id = a.changed_by_id
	  LEFT JOIN profiles oa ON oa.id = a.old_advisor_id
	  LEFT JOIN profiles na ON na.id = a.new_advisor_id
	 WHERE a.visit_id = ?
	 ORDER BY a.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditDetail{}
	for rows.Next() {
		var (
			d       model.AuditDetail
			changer sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.VisitID, &d.Action, &d.ChangedByID, &d.OldStatus, &d.NewStatus,
			&d.OldAdvisorID, &d.NewAdvisorID, &d.CreatedAt, &changer, &d.OldAdvisorEmail, &d.NewAdvisorEmail); err != nil {
			return nil, err
		}
		d.ChangedByEmail = changer.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVisitChanges groups the audit trail per visit for visits matching f,
// most recently changed first.  Only the scope fields of f (AdvisorID and
// AreaID) and Search are applied.
func (r *AuditRepo) ListVisitChanges(ctx context.Context, f model.VisitFilter) ([]model.VisitChangeSummary, error) {
	where, args := visitFilterSQL(model.VisitFilter{AdvisorID: f.AdvisorID, AreaID: f.AreaID, Search: f.Search})
	query := `SELECT v.id, o.name, vt.name, p.email,
	       DATE_FORMAT(v.visit_date, '%Y-%m-%d'), TIME_FORMAT(v.start_time, '%H:%i'), TIME_FORMAT(v.end_time, '%H:%i'),
	       v.status, COUNT(a.id), MAX(a.created_at), v.created_at
	  FROM visit_audit a
	  JOIN visits v ON v.id = a.visit_id
	  JOIN profiles p ON p.id = v.advisor_id
	  JOIN objectives o ON o.id = v.objective_id
	  JOIN visit_types vt ON vt.id = v.visit_type_id` + where + `
	 GROUP BY v.id, o.name, vt.name, p.email, v.visit_date, v.start_time, v.end_time, v.status, v.created_at
	 ORDER BY MAX(a.created_at) DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VisitChangeSummary{}
	for rows.Next() {
		var s model.VisitChangeSummary
		if err := rows.Scan(&s.VisitID, &s.ObjectiveName, &s.VisitTypeName, &s.AdvisorEmail,
			&s.VisitDate, &s.StartTime, &s.EndTime, &s.CurrentStatus, &s.ChangesCount, &s.LatestChange, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
