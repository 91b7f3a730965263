// Package repository holds the database/sql backed stores of the front
// desk: the room inventory, the admission ledger, the template mappings
// and the read-only patient and doctor directories.  Failures that callers
// branch on are reported with the sentinel values below; everything else is
// a storage error and is returned wrapped.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrRoomNotFound is returned when no room row has the requested id.
var ErrRoomNotFound = errors.New("room not found")

// ErrCapacityExceeded is returned by TryReserveBed when every bed of the
// room is already occupied.  Occupancy is left untouched.
var ErrCapacityExceeded = errors.New("room capacity exceeded")

// ErrAdmissionNotFound is returned when no admission has the requested id.
var ErrAdmissionNotFound = errors.New("admission not found")

var ErrPatientNotFound = errors.New("patient not found")
var ErrDoctorNotFound = errors.New("doctor not found")

// ErrTemplateNotFound means no active template is mapped to the pair.  The
// resolver turns it into an empty result.
var ErrTemplateNotFound = errors.New("template not found")

// ErrBedTaken is returned when another Active admission already holds the
// same bed number in the room.
var ErrBedTaken = errors.New("bed already taken")

// ErrInvalidStatus is returned for status literals other than Active and
// Discharged.
var ErrInvalidStatus = errors.New("invalid admission status")

// ErrInvalidRoom is returned by Create for rooms violating the capacity,
// price or type constraints.
var ErrInvalidRoom = errors.New("invalid room")

// isUniqueViolation reports whether err is a duplicate key error from either
// supported driver.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
