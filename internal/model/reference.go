package model

// ObjectiveType distinguishes people from companies.
type ObjectiveType string

const (
	ObjectivePerson  ObjectiveType = "PERSON"
	ObjectiveCompany ObjectiveType = "COMPANY"
)

// Objective is the person or company a visit targets.  Read-only here.
type Objective struct {
	ID            string        `json:"id"`             // objectives.id
	Name          string        `json:"name"`           // objectives.name
	ObjectiveType ObjectiveType `json:"objective_type"` // objectives.objective_type
}

// VisitType is read-only reference data (BUSINESS, FOLLOW_UP, ...).
type VisitType struct {
	ID   string `json:"id"`   // visit_types.id
	Name string `json:"name"` // visit_types.name
}

// CancelReason is read-only reference data required when cancelling.
type CancelReason struct {
	ID          string `json:"id"`          // cancel_reasons.id
	Description string `json:"description"` // cancel_reasons.description
}
