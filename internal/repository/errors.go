// Package repository defines the MySQL and Redis backed stores and the
// error values they share.  These sentinel values allow higher layers to
// distinguish between different failure scenarios without inspecting
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a keyed lookup or a conditional delete/update
// matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an account insert collides with the
// unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrCodeExists is returned when a family insert collides with the unique
// join-code index.
var ErrCodeExists = errors.New("family code already exists")

// ErrConflict is returned for any other uniqueness violation.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
