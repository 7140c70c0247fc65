package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/visit-management/internal/model"
)

// VisitRepo provides access to the visits table.  Every read joins the
// advisor's profile so callers receive the advisor's area, which the
// policy needs for scope checks.  Status changes are conditional updates
// guarded by status = 'SCHEDULED'; the boolean they return tells whether
// this call actually moved the row, which keeps concurrent callers from
// both claiming the same transition.
type VisitRepo struct {
	db *sql.DB
}

// NewVisitRepo returns a new VisitRepo bound to db.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

const visitColumns = `v.id, v.advisor_id, v.assigned_by_id, v.objective_id, v.visit_type_id,
	DATE_FORMAT(v.visit_date, '%Y-%m-%d'), TIME_FORMAT(v.start_time, '%H:%i'), TIME_FORMAT(v.end_time, '%H:%i'),
	v.status, v.notes, v.cancel_reason_id, v.created_at, v.updated_at, p.area_id`

func visitDest(v *model.Visit) []any {
	return []any{&v.ID, &v.AdvisorID, &v.AssignedByID, &v.ObjectiveID, &v.VisitTypeID,
		&v.VisitDate, &v.StartTime, &v.EndTime,
		&v.Status, &v.Notes, &v.CancelReasonID, &v.CreatedAt, &v.UpdatedAt, &v.AdvisorAreaID}
}

// InsertVisit stores a new visit.  The caller supplies id, status and
// timestamps.
func (r *VisitRepo) InsertVisit(ctx context.Context, v model.Visit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visits (id, advisor_id, assigned_by_id, objective_id, visit_type_id,
		                     visit_date, start_time, end_time, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.AdvisorID, v.AssignedByID, v.ObjectiveID, v.VisitTypeID,
		v.VisitDate, v.StartTime, v.EndTime, string(v.Status), v.Notes,
		v.CreatedAt.UTC(), v.UpdatedAt.UTC())
	return translate(err)
}

// GetVisit fetches one visit together with its advisor's area.
func (r *VisitRepo) GetVisit(ctx context.Context, id string) (model.Visit, error) {
	var v model.Visit
	err := r.db.QueryRowContext(ctx,
		`SELECT `+visitColumns+`
		   FROM visits v
		   JOIN profiles p ON p.id = v.advisor_id
		  WHERE v.id = ? LIMIT 1`, id).Scan(visitDest(&v)...)
	return v, translate(err)
}

// ListVisits returns the visits matching f, newest first, with the display
// names used by listings.
func (r *VisitRepo) ListVisits(ctx context.Context, f model.VisitFilter) ([]model.VisitDetail, error) {
	where, args := visitFilterSQL(f)
	query := `SELECT ` + visitColumns + `, p.email, o.name, vt.name
	   FROM visits v
	   JOIN profiles p ON p.id = v.advisor_id
	   JOIN objectives o ON o.id = v.objective_id
	   JOIN visit_types vt ON vt.id = v.visit_type_id` + where + `
	  ORDER BY v.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VisitDetail{}
	for rows.Next() {
		var d model.VisitDetail
		dest := append(visitDest(&d.Visit), &d.AdvisorEmail, &d.ObjectiveName, &d.VisitTypeName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// visitFilterSQL renders f as a WHERE clause over the v, p, o and vt
// aliases.
func visitFilterSQL(f model.VisitFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "v.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Date != "" {
		conds = append(conds, "v.visit_date = ?")
		args = append(args, f.Date)
	}
	if f.AdvisorID != "" {
		conds = append(conds, "v.advisor_id = ?")
		args = append(args, f.AdvisorID)
	}
	if f.AreaID != "" {
		conds = append(conds, "p.area_id = ?")
		args = append(args, f.AreaID)
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		conds = append(conds, "(p.email LIKE ? OR o.name LIKE ? OR vt.name LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t  WHERE " + strings.Join(conds, " AND "), args
}

// CompleteVisit moves a SCHEDULED visit to COMPLETED.  It reports false
// when the visit was no longer SCHEDULED.
func (r *VisitRepo) CompleteVisit(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE visits SET status = 'COMPLETED', updated_at = ? WHERE id = ? AND status = 'SCHEDULED'`,
		at.UTC(), id)
	return affected(res, err)
}

// CancelVisit moves a SCHEDULED visit to CANCELLED.  reasonID is nil for
// the expiry sweep.  A nil notes keeps the existing notes.
func (r *VisitRepo) CancelVisit(ctx context.Context, id string, reasonID, notes *string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE visits
		    SET status = 'CANCELLED', cancel_reason_id = ?, notes = COALESCE(?, notes), updated_at = ?
		  WHERE id = ? AND status = 'SCHEDULED'`,
		reasonID, notes, at.UTC(), id)
	return affected(res, err)
}

// ReassignVisit hands a SCHEDULED visit from one advisor to another.  It
// reports false when the visit changed underneath the caller.
func (r *VisitRepo) ReassignVisit(ctx context.Context, id, fromAdvisorID, toAdvisorID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE visits SET advisor_id = ?, updated_at = ?
		  WHERE id = ? AND status = 'SCHEDULED' AND advisor_id = ?`,
		toAdvisorID, at.UTC(), id, fromAdvisorID)
	return affected(res, err)
}

// ListExpirable returns SCHEDULED visits whose slot ended before today at
// clock (HH:MM).
func (r *VisitRepo) ListExpirable(ctx context.Context, today, clock string) ([]model.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+visitColumns+`
		   FROM visits v
		   JOIN profiles p ON p.id = v.advisor_id
		  WHERE v.status = 'SCHEDULED'
		    AND (v.visit_date < ? OR (v.visit_date = ? AND v.end_time < ?))
		  ORDER BY v.visit_date, v.end_time`,
		today, today, clock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Visit
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(visitDest(&v)...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
