package seeder

import (
	"errors"
	"fmt"
	"strings"
)

// CycleDetectedError reports tables whose foreign keys form a cycle, so no
// generation order exists.
type CycleDetectedError struct {
	Tables []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("circular dependency detected involving tables: %s", strings.Join(e.Tables, ", "))
}

// EmptyParentPoolError reports a foreign key sample against a pool that is
// missing, not yet frozen, or empty. With a correct generation order this
// indicates a bug.
type EmptyParentPoolError struct {
	Table string
	Field string
}

func (e *EmptyParentPoolError) Error() string {
	return fmt.Sprintf("no keys available in parent pool %s.%s", e.Table, e.Field)
}

// UniquenessExhaustedError reports a unique field that kept colliding after
// the retry budget was spent.
type UniquenessExhaustedError struct {
	Table    string
	Field    string
	Row      int
	Attempts int
}

func (e *UniquenessExhaustedError) Error() string {
	return fmt.Sprintf("unique field %s.%s still colliding at row %d after %d attempts", e.Table, e.Field, e.Row, e.Attempts)
}

// TableError attributes a generation failure to a table, and where known
// to a row and field. Row is -1 when the failure is not tied to a row.
type TableError struct {
	Table string
	Field string
	Row   int
	Err   error
}

func (e *TableError) Error() string {
	var b strings.Builder
	b.WriteString("table ")
	b.WriteString(e.Table)
	if e.Row >= 0 {
		fmt.Fprintf(&b, ", row %d", e.Row)
	}
	if e.Field != "" {
		b.WriteString(", field ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *TableError) Unwrap() error {
	return e.Err
}

var (
	errPoolExists = errors.New("key pool already started")
	errPoolFrozen = errors.New("key pool is frozen")
	errNoPool     = errors.New("key pool not started")
)
