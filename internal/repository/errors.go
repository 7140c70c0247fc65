// Package repository defines the MySQL stores and the error types that are
// reused across them.  These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// inspecting driver errors.  For example, ErrUniqueChief indicates that a
// write would give an area a second chief, while ErrConflict signals that
// a row is still referenced by dependent records.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUniqueChief is returned when a role or area change collides with the
// unique_chief_per_area index.  Services translate it into a
// model.ConflictError.
var ErrUniqueChief = errors.New("area already has a chief")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as a foreign key still pointing at
// the row.  Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers the stores care about.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// translate maps driver errors onto the sentinels above.  Anything it does
// not recognise is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			if strings.Contains(me.Message, "unique_chief_per_area") {
				return ErrUniqueChief
			}
			return ErrConflict
		case errRowIsReferenced, errNoReferencedRow:
			return ErrConflict
		}
	}
	return err
}
