package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/visit-management/internal/model"
)

// CatalogRepo reads the reference tables: objectives, visit_types and
// cancel_reasons.  They are maintained outside this application.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to db.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) GetObjective(ctx context.Context, id string) (model.Objective, error) {
	var o model.Objective
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, objective_type FROM objectives WHERE id = ? LIMIT 1`, id).
		Scan(&o.ID, &o.Name, &o.ObjectiveType)
	return o, translate(err)
}

func (r *CatalogRepo) GetVisitType(ctx context.Context, id string) (model.VisitType, error) {
	var t model.VisitType
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM visit_types WHERE id = ? LIMIT 1`, id).Scan(&t.ID, &t.Name)
	return t, translate(err)
}

func (r *CatalogRepo) GetCancelReason(ctx context.Context, id string) (model.CancelReason, error) {
	var c model.CancelReason
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description FROM cancel_reasons WHERE id = ? LIMIT 1`, id).Scan(&c.ID, &c.Description)
	return c, translate(err)
}

// ListObjectives returns all objectives ordered by name.
func (r *CatalogRepo) ListObjectives(ctx context.Context) ([]model.Objective, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, objective_type FROM objectives ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Objective{}
	for rows.Next() {
		var o model.Objective
		if err := rows.Scan(&o.ID, &o.Name, &o.ObjectiveType); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListVisitTypes returns all visit types ordered by name.
func (r *CatalogRepo) ListVisitTypes(ctx context.Context) ([]model.VisitType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM visit_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VisitType{}
	for rows.Next() {
		var t model.VisitType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListCancelReasons returns all cancel reasons ordered by description.
func (r *CatalogRepo) ListCancelReasons(ctx context.Context) ([]model.CancelReason, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, description FROM cancel_reasons ORDER BY description`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CancelReason{}
	for rows.Next() {
		var c model.CancelReason
		if err := rows.Scan(&c.ID, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
