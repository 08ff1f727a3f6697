// Package seeder turns a validated schema into consistent row sets.
//
// Tables are generated one at a time in dependency order. Within a table,
// rows are drafted in parallel batches: every field that does not depend on
// another table is filled from a random source derived from (seed, table,
// row index). The drafts are then admitted one by one in row order, which
// samples foreign keys from the frozen parent pools and enforces
// uniqueness. Because all shared state is touched only in that sequential
// phase, output is a pure function of the schema and the seed.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/provider"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxRetries = 10
	DefaultBatchSize  = 1000
)

// Engine generates data for schemas. It holds no state between runs and
// may be used for several runs, though not concurrently when an Observer
// that is not goroutine-safe is attached.
type Engine struct {
	registry    *provider.Registry
	seed        int64
	maxRetries  int
	workers     int
	batchSize   int
	cardinality map[string]map[string]float64
	log         zerolog.Logger
	observer    Observer
}

// New returns an engine drawing values from registry, or from the
// built-in rules when registry is nil.
func New(registry *provider.Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = provider.Default()
	}
	e := &Engine{
		registry:    registry,
		maxRetries:  DefaultMaxRetries,
		workers:     runtime.NumCPU(),
		batchSize:   DefaultBatchSize,
		cardinality: make(map[string]map[string]float64),
		log:         zerolog.Nop(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan validates s and returns its generation order. No rows are produced.
func (e *Engine) Plan(s *schema.Schema) ([]string, error) {
	if err := schema.Validate(s, e.registry); err != nil {
		return nil, err
	}
	for table, fields := range e.cardinality {
		t := s.Table(table)
		for field := range fields {
			if t == nil || t.Field(field) == nil || !t.Field(field).IsForeignKey() {
				return nil, fmt.Errorf("cardinality hint for %s.%s: not a foreign key field", table, field)
			}
		}
	}
	return ResolveOrder(s)
}

// Generate produces every table of s and keeps all rows in the result.
// On failure the result holds the tables completed before the failing one.
func (e *Engine) Generate(ctx context.Context, s *schema.Schema) (*Result, error) {
	return e.run(ctx, s, nil)
}

// Stream produces every table of s, handing each accepted row to sink
// instead of keeping it. Only row counts are kept in the result.
func (e *Engine) Stream(ctx context.Context, s *schema.Schema, sink Sink) (*Result, error) {
	if sink == nil {
		return nil, errors.New("stream requires a sink")
	}
	return e.run(ctx, s, sink)
}

func (e *Engine) run(ctx context.Context, s *schema.Schema, sink Sink) (*Result, error) {
	order, err := e.Plan(s)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Int64("seed", e.seed).Strs("order", order).Msg("generation order resolved")

	pools := NewKeyPools()
	release := releasePoints(s, order)
	res := &Result{Order: order}
	for pos, name := range order {
		if err := ctx.Err(); err != nil {
			return res, &TableError{Table: name, Row: -1, Err: err}
		}

		t := s.Table(name)
		start := time.Now()
		e.observer.TableStarted(name, t.Rows)
		out, err := e.generateTable(ctx, s, t, pools, sink)
		if err != nil {
			e.observer.TableFailed(name, err)
			e.log.Error().Err(err).Str("table", name).Msg("table generation failed")
			return res, err
		}
		elapsed := time.Since(start)
		e.observer.TableCompleted(name, out.Count, elapsed)
		e.log.Info().Str("table", name).Int("rows", out.Count).Dur("elapsed", elapsed).Msg("table generated")
		res.Tables = append(res.Tables, out)

		for _, done := range release[pos] {
			pools.Release(done)
		}
	}
	return res, nil
}

// releasePoints maps each position in order to the tables whose pools are
// no longer needed once the table at that position is complete.
func releasePoints(s *schema.Schema, order []string) map[int][]string {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	last := make(map[string]int, len(order))
	for i, name := range order {
		last[name] = max(last[name], i)
		for _, dep := range s.Table(name).Dependencies() {
			last[dep] = max(last[dep], i)
		}
	}
	points := make(map[int][]string)
	for _, name := range order {
		points[last[name]] = append(points[last[name]], name)
	}
	return points
}

func (e *Engine) generateTable(ctx context.Context, s *schema.Schema, t *schema.Table, pools *KeyPools, sink Sink) (*Table, error) {
	plan, err := e.compile(s, t)
	if err != nil {
		return nil, err
	}
	if err := pools.Begin(t.Name, plan.keyNames...); err != nil {
		return nil, &TableError{Table: t.Name, Row: -1, Err: err}
	}

	gen := &rowGenerator{plan: plan, sources: newSourceFactory(e.seed, t.Name), pools: pools}
	check := newConstraintValidator(plan, e.maxRetries, e.observer)
	out := &Table{Name: t.Name, Columns: t.Columns()}

	if sink != nil {
		if err := sink.BeginTable(ctx, t); err != nil {
			return nil, &TableError{Table: t.Name, Row: -1, Err: err}
		}
	} else {
		out.Rows = make([]Row, 0, t.Rows)
	}

	drafts := make([]*draft, min(e.batchSize, t.Rows))
	for start := 0; start < t.Rows; start += e.batchSize {
		batch := drafts[:min(e.batchSize, t.Rows-start)]
		if err := e.draftBatch(ctx, gen, batch, start); err != nil {
			return nil, err
		}

		for _, d := range batch {
			if err := ctx.Err(); err != nil {
				return nil, &TableError{Table: t.Name, Row: d.index, Err: err}
			}
			if err := gen.resolve(d); err != nil {
				return nil, err
			}
			if err := check.admit(d, gen.regenerate); err != nil {
				return nil, err
			}
			for _, i := range plan.keys {
				if v := d.values[i]; v != nil {
					if err := pools.Register(t.Name, t.Fields[i].Name, v); err != nil {
						return nil, &TableError{Table: t.Name, Field: t.Fields[i].Name, Row: d.index, Err: err}
					}
				}
			}

			row := Row{Index: d.index, Values: d.values}
			if sink != nil {
				if err := sink.WriteRow(ctx, t, row); err != nil {
					return nil, &TableError{Table: t.Name, Row: d.index, Err: err}
				}
			} else {
				out.Rows = append(out.Rows, row)
			}
			out.Count++
			e.observer.RowGenerated(t.Name)
		}
	}

	if sink != nil {
		if err := sink.EndTable(ctx, t); err != nil {
			return nil, &TableError{Table: t.Name, Row: -1, Err: err}
		}
	}
	if err := pools.Freeze(t.Name); err != nil {
		return nil, &TableError{Table: t.Name, Row: -1, Err: err}
	}
	return out, nil
}

// draftBatch drafts rows start..start+len(drafts)-1. When several rows
// fail, the error of the lowest row is returned so that failures do not
// depend on scheduling.
func (e *Engine) draftBatch(ctx context.Context, gen *rowGenerator, drafts []*draft, start int) error {
	if e.workers <= 1 || len(drafts) <= 1 {
		for i := range drafts {
			d, err := gen.draft(start + i)
			if err != nil {
				return err
			}
			drafts[i] = d
		}
		return nil
	}

	errs := make([]error, len(drafts))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range drafts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = &TableError{Table: gen.plan.table.Name, Row: start + i, Err: err}
				return nil
			}
			drafts[i], errs[i] = gen.draft(start + i)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
