package policy

import (
	"strings"
	"time"

	"github.com/iliyamo/visit-management/internal/model"
)

// SchedulePayload is the input of the schedule intent.
type SchedulePayload struct {
	AdvisorID   string `json:"advisor_id" validate:"required"`
	ObjectiveID string `json:"objective_id" validate:"required"`
	VisitTypeID string `json:"visit_type_id" validate:"required"`
	VisitDate   string `json:"visit_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	Notes       string `json:"notes" validate:"max=2000"`
}

// CancelPayload is the input of the cancel intent.
type CancelPayload struct {
	CancelReasonID string `json:"cancel_reason_id" validate:"required"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// ReassignPayload is the input of the reassign intent.
type ReassignPayload struct {
	AdvisorID string `json:"advisor_id" validate:"required"`
}

// AreaPayload is the input for creating or renaming an area.
type AreaPayload struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description"`
}

// ValidateSchedule checks a schedule request and returns it normalised:
// fields trimmed and times zero padded.  today is the caller's calendar
// date (YYYY-MM-DD); a visit cannot be scheduled before it.
func ValidateSchedule(p SchedulePayload, today string) (SchedulePayload, error) {
	p.AdvisorID = strings.TrimSpace(p.AdvisorID)
	p.ObjectiveID = strings.TrimSpace(p.ObjectiveID)
	p.VisitTypeID = strings.TrimSpace(p.VisitTypeID)
	p.VisitDate = strings.TrimSpace(p.VisitDate)
	p.StartTime = strings.TrimSpace(p.StartTime)
	p.EndTime = strings.TrimSpace(p.EndTime)
	p.Notes = strings.TrimSpace(p.Notes)
	if err := check(p); err != nil {
		return p, err
	}
	p.StartTime = padClock(p.StartTime)
	p.EndTime = padClock(p.EndTime)
	// Same-day visits only, so HH:MM strings compare chronologically.
	if p.EndTime <= p.StartTime {
		return p, model.Invalid("end_time", "must be after start_time")
	}
	if p.VisitDate < today {
		return p, model.Invalid("visit_date", "must not be in the past")
	}
	return p, nil
}

// ValidateCancel trims and checks a cancel request.
func ValidateCancel(p CancelPayload) (CancelPayload, error) {
	p.CancelReasonID = strings.TrimSpace(p.CancelReasonID)
	p.Notes = strings.TrimSpace(p.Notes)
	return p, check(p)
}

// ValidateReassign trims and checks a reassign request.
func ValidateReassign(p ReassignPayload) (ReassignPayload, error) {
	p.AdvisorID = strings.TrimSpace(p.AdvisorID)
	return p, check(p)
}

// ValidateArea trims and checks an area request.  An empty description is
// stored as NULL.
func ValidateArea(p AreaPayload) (AreaPayload, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		if d == "" {
			p.Description = nil
		} else {
			p.Description = &d
		}
	}
	return p, check(p)
}

// padClock rewrites an already validated clock value as HH:MM.
func padClock(s string) string {
	t, err := time.Parse(model.TimeLayout, s)
	if err != nil {
		return s
	}
	return t.Format(model.TimeLayout)
}
