// Package queue carries visit audit entries over RabbitMQ.  The server
// publishes one message per appended entry; the consumer appends them to
// a flat log file for downstream tooling.
package queue

import (
	"time"

	"github.com/iliyamo/visit-management/internal/model"
)

// VisitAuditEvent is the message body published for each audit entry.
// Optional columns are empty strings when null.
type VisitAuditEvent struct {
	AuditID      string `json:"audit_id"`
	VisitID      string `json:"visit_id"`
	Action       string `json:"action"`
	ChangedByID  string `json:"changed_by_id"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
	OldAdvisorID string `json:"old_advisor_id"`
	NewAdvisorID string `json:"new_advisor_id"`
	OccurredAt   string `json:"occurred_at"`
}

// EventFromAudit flattens e into its wire form.
func EventFromAudit(e model.AuditEntry) VisitAuditEvent {
	ev := VisitAuditEvent{
		AuditID:      e.ID,
		VisitID:      e.VisitID,
		Action:       string(e.Action),
		ChangedByID:  deref(e.ChangedByID),
		OldAdvisorID: deref(e.OldAdvisorID),
		NewAdvisorID: deref(e.NewAdvisorID),
		OccurredAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.OldStatus != nil {
		ev.OldStatus = string(*e.OldStatus)
	}
	if e.NewStatus != nil {
		ev.NewStatus = string(*e.NewStatus)
	}
	return ev
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
