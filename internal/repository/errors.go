// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by primary key matches no row.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state.
var ErrConflict = errors.New("conflict")

// ErrSlotTaken is returned by the booking transaction when the requested
// range overlaps a pending or approved appointment of the same hall.
var ErrSlotTaken = errors.New("time range already booked")

// ErrOutsideAvailability is returned by the booking transaction when no
// availability window of the hall contains the requested range.
var ErrOutsideAvailability = errors.New("time range outside hall availability")

// ErrStatusChanged is returned by compare-and-set updates when the row
// no longer has the expected status.
var ErrStatusChanged = errors.New("status changed concurrently")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate entry")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
