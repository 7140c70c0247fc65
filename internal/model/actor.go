package model

// Actor is the authenticated party attempting an operation.  Every policy
// and lifecycle call receives it explicitly; there is no ambient session.
type Actor struct {
	ID     string
	Role   Role
	AreaID *string
	Email  string
}

// IsSystem reports whether the actor is the unattended maintenance sweep.
func (a Actor) IsSystem() bool { return a.ID == "" }
