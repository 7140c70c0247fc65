package model

import "time"

// Area is an organisational unit.  It scopes CHIEF visibility and groups
// advisors.  An area can only be deleted once no profile references it.
//
// Fields:
//  ID          – primary key (uuid).
//  Name        – display name, required.
//  Description – optional free text.
//  CreatedAt   – creation timestamp.
type Area struct {
	ID          string    `json:"id"`                    // areas.id
	Name        string    `json:"name"`                  // areas.name
	Description *string   `json:"description,omitempty"` // areas.description (nullable)
	CreatedAt   time.Time `json:"created_at"`            // areas.created_at
}

// AreaSummary is an area together with its current chief and the number of
// advisors assigned to it.  It backs the area administration listing.
type AreaSummary struct {
	Area
	ChiefID       *string `json:"chief_id,omitempty"`
	ChiefEmail    *string `json:"chief_email,omitempty"`
	AdvisorsCount int     `json:"advisors_count"`
}

// MemberCount is the number of profiles (chief plus advisors) that keep the
// area from being deleted.
func (s AreaSummary) MemberCount() int {
	n := s.AdvisorsCount
	if s.ChiefID != nil {
		n++
	}
	return n
}
