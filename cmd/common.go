package cmd

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/config"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/logger"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/provider"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// project is the loaded configuration and schema a command works on.
type project struct {
	cfg    *config.Config
	schema *schema.Schema
	log    zerolog.Logger
}

func loadProject() (*project, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(tableFlags) > 0 {
		if cfg.Tables == nil {
			cfg.Tables = make(map[string]int, len(tableFlags))
		}
		maps.Copy(cfg.Tables, tableFlags)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.LoggerConfig())
	if err != nil {
		return nil, err
	}

	s, err := schema.Load(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	s.ApplyCounts(cfg.Count, cfg.Tables)
	log.Debug().Str("schema", cfg.Schema).Int("tables", len(s.Tables)).Msg("schema loaded")

	return &project{cfg: cfg, schema: s, log: log}, nil
}

// engine builds a generation engine from the project's configuration.
func (p *project) engine(seed int64, extra ...seeder.Option) (*seeder.Engine, error) {
	hints, err := p.cfg.CardinalityHints(p.schema)
	if err != nil {
		return nil, err
	}

	opts := []seeder.Option{
		seeder.WithSeed(seed),
		seeder.WithMaxRetries(p.cfg.MaxUniquenessRetries),
		seeder.WithWorkers(p.cfg.Workers),
		seeder.WithBatchSize(p.cfg.BatchSize),
		seeder.WithLogger(p.log),
	}
	for _, h := range hints {
		opts = append(opts, seeder.WithCardinality(h.Table, h.Field, h.K))
	}
	return seeder.New(provider.Default(), append(opts, extra...)...), nil
}

// seed returns the configured seed, or a fresh one when none is set.
func (p *project) seed() int64 {
	if p.cfg.SeedSet {
		return p.cfg.Seed
	}
	return time.Now().UnixNano()
}

// reportPlanError prints the problems behind a failed plan.
func reportPlanError(err error) {
	var schemaErr *schema.Error
	var cycleErr *seeder.CycleDetectedError
	switch {
	case errors.As(err, &schemaErr):
		color.Red("❌ Schema has %d problem(s):", len(schemaErr.Violations))
		for _, v := range schemaErr.Violations {
			color.Red("  • %s", v)
		}
	case errors.As(err, &cycleErr):
		color.Red("❌ %v", cycleErr)
		color.Yellow("💡 Tables in a foreign key cycle cannot be ordered; break the cycle in the schema")
	default:
		color.Red("❌ %v", err)
	}
}
