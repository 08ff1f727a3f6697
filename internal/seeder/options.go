package seeder

import "github.com/rs/zerolog"

// Option configures an Engine.
type Option func(*Engine)

// WithSeed sets the run seed. Equal seeds and schemas give equal output.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithMaxRetries bounds the regeneration attempts for a colliding unique
// value.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithWorkers sets how many rows are drafted in parallel. Output does not
// depend on it.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchSize sets how many rows are drafted before they are admitted.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithCardinality overrides the cardinality hint of one foreign key field.
func WithCardinality(table, field string, k float64) Option {
	return func(e *Engine) {
		if e.cardinality[table] == nil {
			e.cardinality[table] = make(map[string]float64)
		}
		e.cardinality[table][field] = k
	}
}

// WithLogger sets the logger for run progress. The default discards.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithObserver sets the Observer notified of per-table and per-row events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}
