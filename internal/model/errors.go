package model

import (
	"errors"
	"fmt"
)

// DenyReason explains why the policy refused a request.
type DenyReason string

const (
	DenyOutOfScope  DenyReason = "OUT_OF_SCOPE"
	DenyWrongRole   DenyReason = "WRONG_ROLE"
	DenyWrongState  DenyReason = "WRONG_STATE"
	DenyOutOfWindow DenyReason = "OUT_OF_WINDOW"
)

// Message is the human-readable form of r.
func (r DenyReason) Message() string {
	switch r {
	case DenyOutOfScope:
		return "the record belongs to another area or advisor"
	case DenyWrongRole:
		return "your role does not allow this action"
	case DenyWrongState:
		return "the visit is no longer scheduled"
	case DenyOutOfWindow:
		return "the visit can only be executed on its date between its start and end time"
	}
	return "not allowed"
}

// DeniedError is returned when the actor may not perform the request.
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string { return "denied: " + string(e.Reason) }

// Deny builds a DeniedError for reason.
func Deny(reason DenyReason) error { return &DeniedError{Reason: reason} }

// ConflictError reports that an area already has a different chief.
type ConflictError struct {
	ExistingChiefEmail string
}

func (e *ConflictError) Error() string {
	if e.ExistingChiefEmail == "" {
		return "conflict: area already has a chief"
	}
	return "conflict: area already has a chief (" + e.ExistingChiefEmail + ")"
}

// HasDependentsError blocks deleting an area that profiles still reference.
type HasDependentsError struct {
	Count int
}

func (e *HasDependentsError) Error() string {
	return fmt.Sprintf("area has %d dependent profile(s)", e.Count)
}

// HasVisitsError blocks deleting a profile referenced by visits.
type HasVisitsError struct {
	Count int
}

func (e *HasVisitsError) Error() string {
	return fmt.Sprintf("profile is referenced by %d visit(s)", e.Count)
}

// ErrSelfDeletion is returned when an actor tries to delete their own profile.
var ErrSelfDeletion = errors.New("cannot delete own profile")

// ErrSelfModification is returned when an actor tries to change their own
// role or area.
var ErrSelfModification = errors.New("cannot change own role or area")

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "invalid " + e.Field
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return e.Entity + " " + e.ID + " not found" }

// StorageError wraps an opaque failure of the backing store.
type StorageError struct {
	Cause error
}

func (e *StorageError) Error() string { return "storage: " + e.Cause.Error() }
func (e *StorageError) Unwrap() error { return e.Cause }

// AuditWriteFailedError is a non-fatal warning: the transition was applied
// but its audit entry could not be appended.
type AuditWriteFailedError struct {
	VisitID string
	Action  AuditAction
	Cause   error
}

func (e *AuditWriteFailedError) Error() string {
	return fmt.Sprintf("audit %s for visit %s not recorded: %v", e.Action, e.VisitID, e.Cause)
}

func (e *AuditWriteFailedError) Unwrap() error { return e.Cause }

// IsDenied reports whether err is a DeniedError with the given reason.
func IsDenied(err error, reason DenyReason) bool {
	var d *DeniedError
	return errors.As(err, &d) && d.Reason == reason
}
