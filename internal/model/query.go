package model

// ProfileQuery narrows a profile listing.  Empty fields mean "no filter".
type ProfileQuery struct {
	Role      Role
	AreaID    string
	ExcludeID string
}
