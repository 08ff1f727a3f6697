package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// validIdentifier validates SQL identifiers (table/column names) to prevent SQL injection
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const DefaultSQLBatchSize = 500

type SQLOptions struct {
	Provider      string
	BatchSize     int
	Truncate      bool
	NoTransaction bool
}

type dialect struct {
	name        string
	placeholder squirrel.PlaceholderFormat
	quote       func(string) string
	truncate    string
	maxParams   int
}

func dialectFor(provider string) (dialect, error) {
	switch provider {
	case "postgresql", "postgres":
		return dialect{
			name:        "postgresql",
			placeholder: squirrel.Dollar,
			quote:       pq.QuoteIdentifier,
			truncate:    "TRUNCATE TABLE %s RESTART IDENTITY CASCADE",
			maxParams:   65535,
		}, nil
	case "mysql":
		return dialect{
			name:        "mysql",
			placeholder: squirrel.Question,
			quote:       func(s string) string { return "`" + s + "`" },
			truncate:    "TRUNCATE TABLE %s",
			maxParams:   65535,
		}, nil
	case "sqlite", "sqlite3":
		return dialect{
			name:        "sqlite",
			placeholder: squirrel.Question,
			quote:       func(s string) string { return `"` + s + `"` },
			truncate:    "DELETE FROM %s",
			maxParams:   32766,
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database provider: %s", provider)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQL inserts rows into existing database tables with multi-row INSERT
// statements. Call Begin before the run and Finish after it.
type SQL struct {
	db      *sql.DB
	tx      *sql.Tx
	exec    execer
	opts    SQLOptions
	dialect dialect
	builder squirrel.StatementBuilderType

	base    squirrel.InsertBuilder
	insert  squirrel.InsertBuilder
	pending int
	limit   int

	inserted map[string]int
}

func NewSQL(db *sql.DB, opts SQLOptions) (*SQL, error) {
	d, err := dialectFor(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSQLBatchSize
	}
	return &SQL{
		db:       db,
		exec:     db,
		opts:     opts,
		dialect:  d,
		builder:  squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
		inserted: make(map[string]int),
	}, nil
}

// isValidIdentifier checks if a string is a valid SQL identifier
func isValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// Begin empties the tables of order when truncation is enabled, children
// first, and then opens the transaction rows are written in.
func (s *SQL) Begin(ctx context.Context, order []string) error {
	for _, name := range order {
		if !isValidIdentifier(name) {
			return fmt.Errorf("invalid table name: %s", name)
		}
	}

	if s.opts.Truncate {
		var errs []string
		for i := len(order) - 1; i >= 0; i-- {
			query := fmt.Sprintf(s.dialect.truncate, s.dialect.quote(order[i]))
			if _, err := s.db.ExecContext(ctx, query); err != nil {
				errs = append(errs, fmt.Sprintf("failed to truncate %s: %v", order[i], err))
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("truncate errors: %s", strings.Join(errs, "; "))
		}
	}

	if s.opts.NoTransaction {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	s.tx, s.exec = tx, tx
	return nil
}

func (s *SQL) BeginTable(_ context.Context, t *schema.Table) error {
	if !isValidIdentifier(t.Name) {
		return fmt.Errorf("invalid table name: %s", t.Name)
	}
	columns := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		if !isValidIdentifier(f.Name) {
			return fmt.Errorf("invalid column name in table %s: %s", t.Name, f.Name)
		}
		columns[i] = s.dialect.quote(f.Name)
	}

	s.base = s.builder.Insert(s.dialect.quote(t.Name)).Columns(columns...)
	s.insert = s.base
	s.pending = 0
	s.limit = max(1, min(s.opts.BatchSize, s.dialect.maxParams/max(1, len(columns))))
	return nil
}

func (s *SQL) WriteRow(ctx context.Context, t *schema.Table, row seeder.Row) error {
	s.insert = s.insert.Values(row.Values...)
	s.pending++
	if s.pending >= s.limit {
		return s.flush(ctx, t)
	}
	return nil
}

func (s *SQL) EndTable(ctx context.Context, t *schema.Table) error {
	return s.flush(ctx, t)
}

func (s *SQL) flush(ctx context.Context, t *schema.Table) error {
	if s.pending == 0 {
		return nil
	}
	query, args, err := s.insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert for %s: %w", t.Name, err)
	}
	if _, err := s.exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert batch into %s: %w", t.Name, err)
	}
	s.inserted[t.Name] += s.pending
	s.insert = s.base
	s.pending = 0
	return nil
}

// Finish commits the transaction when runErr is nil and rolls it back
// otherwise. The returned error includes runErr.
func (s *SQL) Finish(runErr error) error {
	if s.tx == nil {
		return runErr
	}
	tx := s.tx
	s.tx, s.exec = nil, s.db

	if runErr != nil {
		// A cancelled context has already rolled the transaction back.
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return fmt.Errorf("seed failed and rollback failed: %v (original: %w)", err, runErr)
		}
		return runErr
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close rolls back a transaction that was never finished. The database
// handle belongs to the caller.
func (s *SQL) Close() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx, s.exec = nil, s.db
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Inserted reports how many rows were written to table.
func (s *SQL) Inserted(table string) int {
	return s.inserted[table]
}

// DSN maps a provider and connection URL onto a database/sql driver name
// and data source name.
func DSN(provider, rawURL string) (string, string, error) {
	switch provider {
	case "postgresql", "postgres":
		return "pgx", rawURL, nil
	case "mysql":
		if !strings.HasPrefix(rawURL, "mysql://") {
			return "mysql", rawURL, nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid mysql URL: %w", err)
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.ParseTime = true
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		return "mysql", cfg.FormatDSN(), nil
	case "sqlite", "sqlite3":
		for _, prefix := range []string{"sqlite3://", "sqlite://"} {
			if strings.HasPrefix(rawURL, prefix) {
				return "sqlite3", strings.TrimPrefix(rawURL, prefix), nil
			}
		}
		return "sqlite3", rawURL, nil
	}
	return "", "", fmt.Errorf("unsupported database provider: %s", provider)
}

// OpenDB opens and pings the database for provider.
func OpenDB(ctx context.Context, provider, rawURL string) (*sql.DB, error) {
	driverName, dsn, err := DSN(provider, rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
