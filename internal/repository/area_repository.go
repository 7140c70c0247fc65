package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/visit-management/internal/model"
)

// AreaRepo provides access to the areas table.
type AreaRepo struct {
	db *sql.DB
}

// NewAreaRepo returns a new AreaRepo bound to db.
func NewAreaRepo(db *sql.DB) *AreaRepo { return &AreaRepo{db: db} }

// InsertArea creates a new area row.  The caller supplies the id.
func (r *AreaRepo) InsertArea(ctx context.Context, a model.Area) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO areas (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, a.CreatedAt.UTC())
	return translate(err)
}

// SaveArea updates the name and description of an existing area.
func (r *AreaRepo) SaveArea(ctx context.Context, a model.Area) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE areas SET name = ?, description = ? WHERE id = ?`,
		a.Name, a.Description, a.ID)
	return translate(err)
}

// GetArea fetches an area by id.
func (r *AreaRepo) GetArea(ctx context.Context, id string) (model.Area, error) {
	var a model.Area
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM areas WHERE id = ? LIMIT 1`, id).
		Scan(&a.ID, &a.Name, &a.Description, &a.CreatedAt)
	return a, translate(err)
}

// ListAreaSummaries returns every area with its chief and advisor count,
// ordered by name.  The chief is found through the generated
// chief_area_id column that backs the one-chief-per-area index.
func (r *AreaRepo) ListAreaSummaries(ctx context.Context) ([]model.AreaSummary, error) {
	const q = `SELECT a.id, a.name, a.description, a.created_at, c.id, c.email,
	       (SELECT COUNT(*) FROM profiles p WHERE p.area_id = a.id AND p.role = 'ADVISOR')
	  FROM areas a
	  LEFT JOIN profiles c ON c.chief_area_id = a.id
	 ORDER BY a.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AreaSummary{}
	for rows.Next() {
		var s model.AreaSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.ChiefID, &s.ChiefEmail, &s.AdvisorsCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteArea removes an area that no profile references.  When profiles
// still belong to it nothing is deleted and their count is returned.
// ErrNotFound is returned for an unknown id.
func (r *AreaRepo) DeleteArea(ctx context.Context, id string) (dependents int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var locked string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM areas WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		return 0, translate(err)
	}
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE area_id = ?`, id).Scan(&dependents); err != nil {
		return 0, err
	}
	if dependents > 0 {
		return dependents, nil
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM areas WHERE id = ?`, id); err != nil {
		return 0, translate(err)
	}
	return 0, nil
}
