package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite3 "modernc.org/sqlite/lib"
)

// Constraint is the kind of database constraint a statement violated.
type Constraint uint8

// Constraint kinds.
const (
	Unique Constraint = iota + 1
	ForeignKey
	Check
	NotNull
)

var constraintNames = [...]string{
	Unique:     "unique",
	ForeignKey: "foreign key",
	Check:      "check",
	NotNull:    "not null",
}

func (c Constraint) String() string {
	if c > 0 && int(c) < len(constraintNames) {
		return constraintNames[c]
	}
	return "unknown"
}

// ConstraintError is returned by Conn.Exec when a statement violates a database
// constraint, for example an insert of an existing identity.
type ConstraintError struct {
	Kind Constraint
	Err  error
}

func (e *ConstraintError) Error() string {
	return "dialect/sql: " + e.Kind.String() + " constraint violation: " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraintError reports if err is a constraint violation.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

// IsUniqueConstraintError reports if err is a uniqueness or primary key
// violation.
func IsUniqueConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) && e.Kind == Unique
}

// IsForeignKeyConstraintError reports if err is a foreign key violation.
func IsForeignKeyConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) && e.Kind == ForeignKey
}

// execError wraps a driver error of an exec call. Constraint violations
// are returned as *ConstraintError.
func execError(err error) error {
	if k := classify(err); k != 0 {
		return &ConstraintError{Kind: k, Err: err}
	}
	return fmt.Errorf("dialect/sql: exec: %w", err)
}

// Postgres SQLSTATE codes of class 23.
const (
	pgNotNull    = "23502"
	pgForeignKey = "23503"
	pgUnique     = "23505"
	pgCheck      = "23514"
)

// MySQL error numbers.
const (
	myNotNull         = 1048
	myDuplicate       = 1062
	myForeignKeyRow   = 1451
	myForeignKeyChild = 1452
	myCheck           = 3819
)

// sqliteError is implemented by modernc.org/sqlite errors.
type sqliteError interface {
	Code() int
}

func classify(err error) Constraint {
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch string(pe.Code) {
		case pgUnique:
			return Unique
		case pgForeignKey:
			return ForeignKey
		case pgCheck:
			return Check
		case pgNotNull:
			return NotNull
		}
		return 0
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case myDuplicate:
			return Unique
		case myForeignKeyRow, myForeignKeyChild:
			return ForeignKey
		case myCheck:
			return Check
		case myNotNull:
			return NotNull
		}
		return 0
	}
	var se sqliteError
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return Unique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ForeignKey
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return Check
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return NotNull
		}
	}
	// Drivers without typed errors, and sqlite without extended codes.
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "violates unique constraint", "Error 1062"):
		return Unique
	case containsAny(msg, "FOREIGN KEY constraint failed", "violates foreign key constraint", "Error 1451", "Error 1452"):
		return ForeignKey
	case containsAny(msg, "CHECK constraint failed", "violates check constraint", "Error 3819"):
		return Check
	case containsAny(msg, "NOT NULL constraint failed", "violates not-null constraint"):
		return NotNull
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
