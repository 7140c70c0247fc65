package service

import (
	"time"

	"github.com/iliyamo/visit-management/internal/model"
)

// Clock supplies "now".  Calendar comparisons use the location of the
// returned time, so the clock decides what "today" means.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

func today(t time.Time) string   { return t.Format(model.DateLayout) }
func clockOf(t time.Time) string { return t.Format(model.TimeLayout) }
