package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/metrics"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/sink"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var generateQuiet bool

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate synthetic data for every table of a schema",
	Long: `Generate rows for every table in dependency order and write them to CSV or
JSON Lines files, or insert them into a database.

Examples:
  tablefaker generate --schema schema.yaml --seed 42
  tablefaker generate --output json --out-dir data --table users=1000
  tablefaker generate --schema db/schema.sql --output sql --truncate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}

		seed := p.seed()
		observer := &progress{Collector: metrics.NewCollector(), quiet: generateQuiet}
		engine, err := p.engine(seed, seeder.WithObserver(observer))
		if err != nil {
			return err
		}

		order, err := engine.Plan(p.schema)
		if err != nil {
			reportPlanError(err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		color.Cyan("🌱 Generating %d tables (seed %d)...", len(order), seed)
		res, err := p.run(ctx, engine, order)

		if path := p.cfg.Metrics; path != "" {
			if werr := observer.WriteTextfile(path); werr != nil {
				color.Yellow("⚠️  Could not write metrics to %s: %v", path, werr)
			}
		}

		if err != nil {
			var tableErr *seeder.TableError
			if errors.As(err, &tableErr) && res != nil && len(res.Tables) > 0 {
				color.Yellow("⚠️  %d of %d tables completed before the failure", len(res.Tables), len(order))
			}
			color.Red("❌ %v", err)
			color.Yellow("💡 Re-run with --seed %d to reproduce", seed)
			return err
		}

		if p.cfg.Verify {
			if err := seeder.Verify(p.schema, res); err != nil {
				color.Red("❌ %v", err)
				return err
			}
			color.Green("🔍 Verified every constraint")
		}

		total := 0
		for _, t := range res.Tables {
			total += t.Count
		}
		color.Green("\n✅ Generated %d rows across %d tables (seed %d)", total, len(res.Tables), seed)
		if dir := p.cfg.Output.Dir; p.cfg.Output.Format == "csv" || p.cfg.Output.Format == "json" {
			color.Cyan("📁 Files written to %s", dir)
		}
		return nil
	},
}

// run generates the project's data into the configured output. Rows are
// streamed unless verification needs them retained.
func (p *project) run(ctx context.Context, engine *seeder.Engine, order []string) (*seeder.Result, error) {
	var dst seeder.Sink
	finish := func(err error) error { return err }

	switch p.cfg.Output.Format {
	case "csv":
		dst = sink.NewCSV(p.cfg.Output.Dir)
	case "json":
		dst = sink.NewJSONLines(p.cfg.Output.Dir)
	case "sql":
		dbURL, err := p.cfg.GetDatabaseURL()
		if err != nil {
			return nil, err
		}
		db, err := sink.OpenDB(ctx, p.cfg.Database.Provider, dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		sqlSink, err := sink.NewSQL(db, sink.SQLOptions{
			Provider:      p.cfg.Database.Provider,
			BatchSize:     p.cfg.Database.BatchSize,
			Truncate:      p.cfg.Database.Truncate,
			NoTransaction: p.cfg.Database.NoTransaction,
		})
		if err != nil {
			return nil, err
		}
		if p.cfg.Database.Truncate {
			color.Yellow("🗑️  Truncating tables...")
		}
		if err := sqlSink.Begin(ctx, order); err != nil {
			return nil, err
		}
		dst, finish = sqlSink, sqlSink.Finish
	}
	if closer, ok := dst.(sink.Closer); ok {
		defer closer.Close()
	}

	var res *seeder.Result
	var err error
	if dst == nil || p.cfg.Verify {
		res, err = engine.Generate(ctx, p.schema)
		if err == nil && dst != nil {
			err = sink.Replay(ctx, p.schema, res, dst)
		}
	} else {
		res, err = engine.Stream(ctx, p.schema, dst)
	}
	return res, finish(err)
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.Int64("seed", 0, "random seed (a fresh seed is drawn and printed when unset)")
	flags.StringP("output", "o", "", "output format: csv, json, sql or none")
	flags.String("out-dir", "", "directory for csv and json output")
	flags.Int("workers", 0, "goroutines drafting rows in parallel")
	flags.Int("batch-size", 0, "rows drafted per parallel batch")
	flags.Int("max-retries", 0, "regeneration attempts per uniqueness collision")
	flags.Bool("verify", false, "re-check every constraint of the generated data")
	flags.String("metrics", "", "write Prometheus metrics to this file")
	flags.Bool("truncate", false, "empty the target tables before inserting (sql output)")
	flags.Bool("no-transaction", false, "insert without a wrapping transaction (sql output)")
	flags.BoolVarP(&generateQuiet, "quiet", "q", false, "only print the summary")

	bindFlags(generateCmd, map[string]string{
		"seed":                    "seed",
		"output.format":           "output",
		"output.dir":              "out-dir",
		"workers":                 "workers",
		"batch_size":              "batch-size",
		"max_uniqueness_retries":  "max-retries",
		"verify":                  "verify",
		"metrics":                 "metrics",
		"database.truncate":       "truncate",
		"database.no_transaction": "no-transaction",
	}, false)
}
