package model

import "time"

// Profile represents a staff member as stored in the `profiles` table.  The
// row is provisioned by the external auth service; this application only
// changes role and area and may delete it.
//
// Invariant: for a given non-null AreaID at most one profile with
// Role=CHIEF may reference it.
type Profile struct {
	ID        string    `json:"id"`         // profiles.id (auth subject)
	Email     string    `json:"email"`      // profiles.email
	Role      Role      `json:"role"`       // profiles.role
	AreaID    *string   `json:"area_id"`    // profiles.area_id (nullable)
	AreaName  *string   `json:"area_name"`  // joined from areas.name
	CreatedAt time.Time `json:"created_at"` // profiles.created_at
}

// InArea reports whether the profile belongs to areaID.  A nil area never
// matches, not even another nil area.
func (p Profile) InArea(areaID *string) bool {
	return p.AreaID != nil && areaID != nil && *p.AreaID == *areaID
}

// Actor returns the actor context for an authenticated profile.
func (p Profile) Actor() Actor {
	return Actor{ID: p.ID, Role: p.Role, AreaID: p.AreaID, Email: p.Email}
}
