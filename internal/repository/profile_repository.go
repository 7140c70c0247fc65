package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/visit-management/internal/model"
)

// ProfileRepo provides access to the profiles table.  Rows are provisioned
// by the external auth service; this repository only reads them and
// changes role and area.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo returns a new ProfileRepo bound to db.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileSelect = `SELECT p.id, p.email, p.role, p.area_id, a.name, p.created_at
	FROM profiles p
	LEFT JOIN areas a ON a.id = p.area_id`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (model.Profile, error) {
	var p model.Profile
	err := s.Scan(&p.ID, &p.Email, &p.Role, &p.AreaID, &p.AreaName, &p.CreatedAt)
	return p, err
}

// GetProfile fetches a profile by id.  ErrNotFound is returned when no
// such profile exists.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+` WHERE p.id = ? LIMIT 1`, id))
	return p, translate(err)
}

// FindChiefOfArea returns the chief of areaID, ignoring excludeID when it
// is non-empty.  It returns nil when the area has no other chief.
func (r *ProfileRepo) FindChiefOfArea(ctx context.Context, areaID, excludeID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		profileSelect+` WHERE p.role = 'CHIEF' AND p.area_id = ? AND p.id <> ? LIMIT 1`,
		areaID, excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetProfileRole changes the role of a profile.  A promotion that would
// give the area a second chief fails with ErrUniqueChief.
func (r *ProfileRepo) SetProfileRole(ctx context.Context, id string, role model.Role) error {
	_, err := r.db.ExecContext(ctx, `UPDATE profiles SET role = ? WHERE id = ?`, string(role), id)
	return translate(err)
}

// SetProfileArea moves a profile to areaID, or clears its area when areaID
// is nil.  Moving a chief into an area that already has one fails with
// ErrUniqueChief; an unknown area fails with ErrConflict.
func (r *ProfileRepo) SetProfileArea(ctx context.Context, id string, areaID *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE profiles SET area_id = ? WHERE id = ?`, areaID, id)
	return translate(err)
}

// ListProfiles returns the profiles matching q, newest first.
func (r *ProfileRepo) ListProfiles(ctx context.Context, q model.ProfileQuery) ([]model.Profile, error) {
	var (
		conds []string
		args  []any
	)
	if q.Role != "" {
		conds = append(conds, "p.role = ?")
		args = append(args, string(q.Role))
	}
	if q.AreaID != "" {
		conds = append(conds, "p.area_id = ?")
		args = append(args, q.AreaID)
	}
	if q.ExcludeID != "" {
		conds = append(conds, "p.id <> ?")
		args = append(args, q.ExcludeID)
	}
	query := profileSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.email"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProfile removes a profile that no visit references.  When visits
// still point at it, as advisor or as scheduler, nothing is deleted and
// the number of references is returned instead.  The count and the delete
// run in one transaction so a concurrent schedule cannot slip in between.
func (r *ProfileRepo) DeleteProfile(ctx context.Context, id string) (refs int, err error) {
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
	// Lock the profile row first so new visits referencing it wait.
	var locked string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM profiles WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		return 0, translate(err)
	}
	if err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM visits WHERE advisor_id = ?) +
		        (SELECT COUNT(*) FROM visits WHERE assigned_by_id = ?)`,
		id, id).Scan(&refs); err != nil {
		return 0, err
	}
	if refs > 0 {
		return refs, nil
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return 0, translate(err)
	}
	return 0, nil
}
