package model

import "time"

// AuditAction names the transition an audit entry records.
type AuditAction string

const (
	ActionCreate   AuditAction = "CREATE"
	ActionCancel   AuditAction = "CANCEL"
	ActionReassign AuditAction = "REASSIGN"
	ActionExecute  AuditAction = "EXECUTE"
	ActionUpdate   AuditAction = "UPDATE"
	// ActionExpire marks a cancellation made by the overdue sweep.  Its
	// ChangedByID is always nil.
	ActionExpire AuditAction = "EXPIRE"
)

// AuditEntry is one immutable row of visit_audit.  Entries are appended
// once per successful transition and never updated or deleted.
type AuditEntry struct {
	ID           string       `json:"id"`             // visit_audit.id
	VisitID      string       `json:"visit_id"`       // visit_audit.visit_id
	Action       AuditAction  `json:"action"`         // visit_audit.action
	ChangedByID  *string      `json:"changed_by_id"`  // visit_audit.changed_by_id (nil for the sweep)
	OldStatus    *VisitStatus `json:"old_status"`     // visit_audit.old_status
	NewStatus    *VisitStatus `json:"new_status"`     // visit_audit.new_status
	OldAdvisorID *string      `json:"old_advisor_id"` // visit_audit.old_advisor_id
	NewAdvisorID *string      `json:"new_advisor_id"` // visit_audit.new_advisor_id
	CreatedAt    time.Time    `json:"created_at"`     // visit_audit.created_at
}

// AuditDetail is an audit entry with profile ids resolved to emails.
type AuditDetail struct {
	AuditEntry
	ChangedByEmail  string  `json:"changed_by_email"`
	OldAdvisorEmail *string `json:"old_advisor_email"`
	NewAdvisorEmail *string `json:"new_advisor_email"`
}

// VisitChangeSummary groups the audit trail of one visit for the change
// history listing.
type VisitChangeSummary struct {
	VisitID       string      `json:"visit_id"`
	ObjectiveName string      `json:"objective_name"`
	VisitTypeName string      `json:"visit_type_name"`
	AdvisorEmail  string      `json:"advisor_email"`
	VisitDate     string      `json:"visit_date"`
	StartTime     string      `json:"start_time"`
	EndTime       string      `json:"end_time"`
	CurrentStatus VisitStatus `json:"current_status"`
	ChangesCount  int         `json:"changes_count"`
	LatestChange  time.Time   `json:"latest_change"`
	CreatedAt     time.Time   `json:"created_at"`
}
