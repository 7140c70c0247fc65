package model

import (
	"strings"
	"time"
)

// Layouts used for the calendar date and wall-clock columns of a visit.
// Both are zero padded so lexicographic comparison matches chronological
// order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// VisitStatus is the lifecycle state of a visit.  SCHEDULED is the only
// non-terminal state; IN_PROGRESS is reserved and never produced.
type VisitStatus string

const (
	StatusScheduled  VisitStatus = "SCHEDULED"
	StatusInProgress VisitStatus = "IN_PROGRESS"
	StatusCompleted  VisitStatus = "COMPLETED"
	StatusCancelled  VisitStatus = "CANCELLED"
)

// ParseVisitStatus normalises s and reports whether it is a known status.
func ParseVisitStatus(s string) (VisitStatus, bool) {
	st := VisitStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, true
	}
	return st, false
}

// Ptr returns a pointer to a copy of s, handy for nullable audit columns.
func (s VisitStatus) Ptr() *VisitStatus { return &s }

// Visit records a scheduled encounter between an advisor and an objective.
// Visits are never deleted; they move from SCHEDULED to COMPLETED or
// CANCELLED, or change advisor while still SCHEDULED.
//
// Fields:
//  ID             – primary key (uuid).
//  AdvisorID      – profile performing the visit.
//  AssignedByID   – profile that scheduled it (CHIEF or ADMIN).
//  ObjectiveID    – person or company visited.
//  VisitTypeID    – reference to visit_types.
//  VisitDate      – calendar date, YYYY-MM-DD.
//  StartTime      – HH:MM, 24h.
//  EndTime        – HH:MM, strictly after StartTime.
//  Status         – lifecycle state.
//  Notes          – optional free text.
//  CancelReasonID – set when cancelled by a person.
//  AdvisorAreaID  – area of the advisor, joined on read and used for scope.
type Visit struct {
	ID             string      `json:"id"`                         // visits.id
	AdvisorID      string      `json:"advisor_id"`                 // visits.advisor_id
	AssignedByID   string      `json:"assigned_by_id"`             // visits.assigned_by_id
	ObjectiveID    string      `json:"objective_id"`               // visits.objective_id
	VisitTypeID    string      `json:"visit_type_id"`              // visits.visit_type_id
	VisitDate      string      `json:"visit_date"`                 // visits.visit_date
	StartTime      string      `json:"start_time"`                 // visits.start_time
	EndTime        string      `json:"end_time"`                   // visits.end_time
	Status         VisitStatus `json:"status"`                     // visits.status
	Notes          *string     `json:"notes,omitempty"`            // visits.notes (nullable)
	CancelReasonID *string     `json:"cancel_reason_id,omitempty"` // visits.cancel_reason_id (nullable)
	CreatedAt      time.Time   `json:"created_at"`                 // visits.created_at
	UpdatedAt      time.Time   `json:"updated_at"`                 // visits.updated_at
	AdvisorAreaID  *string     `json:"advisor_area_id,omitempty"`  // profiles.area_id of the advisor
}

// VisitDetail is a visit joined with the display names used by listings.
type VisitDetail struct {
	Visit
	AdvisorEmail  string `json:"advisor_email"`
	ObjectiveName string `json:"objective_name"`
	VisitTypeName string `json:"visit_type_name"`
}

// VisitFilter narrows a visit listing.  Empty strings mean "no filter".
// AreaID filters on the advisor's area, which requires the join on
// profiles.
type VisitFilter struct {
	Status    VisitStatus
	Date      string
	AdvisorID string
	AreaID    string
	// Search matches advisor email, objective name or visit type name,
	// case-insensitively.
	Search string
}
