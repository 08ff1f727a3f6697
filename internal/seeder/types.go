package seeder

import (
	"context"
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
)

// Row is one generated row. Values line up with the table's fields; nil
// is the null marker. Rows are never modified after they are emitted.
type Row struct {
	Index  int
	Values []any
}

// Table is the generated output for one table.
type Table struct {
	Name    string
	Columns []string
	// Rows is empty when the run streamed its rows to a Sink.
	Rows  []Row
	Count int
}

// Column returns every value of the named column, or nil if there is no
// such column.
func (t *Table) Column(name string) []any {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	values := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r.Values[idx]
	}
	return values
}

// Record returns row i as a column name to value mapping.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.Columns))
	for j, c := range t.Columns {
		rec[c] = t.Rows[i].Values[j]
	}
	return rec
}

// Result holds the completed tables of a run in generation order. After a
// failed run it holds the tables that finished before the failure.
type Result struct {
	Order  []string
	Tables []*Table
}

// Table returns the generated table with the given name, or nil.
func (r *Result) Table(name string) *Table {
	for _, t := range r.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Sink receives rows as they are accepted. Tables arrive in generation
// order and rows in index order.
type Sink interface {
	BeginTable(ctx context.Context, t *schema.Table) error
	WriteRow(ctx context.Context, t *schema.Table, row Row) error
	EndTable(ctx context.Context, t *schema.Table) error
}

// Observer is notified of generation progress. Calls are made from the
// goroutine driving the run.
type Observer interface {
	TableStarted(table string, rows int)
	RowGenerated(table string)
	UniquenessRetry(table, field string)
	TableCompleted(table string, rows int, elapsed time.Duration)
	TableFailed(table string, err error)
}

type nopObserver struct{}

func (nopObserver) TableStarted(string, int)                    {}
func (nopObserver) RowGenerated(string)                         {}
func (nopObserver) UniquenessRetry(string, string)              {}
func (nopObserver) TableCompleted(string, int, time.Duration)   {}
func (nopObserver) TableFailed(string, error)                   {}
