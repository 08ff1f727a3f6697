package cmd

import (
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/metrics"
	"github.com/fatih/color"
)

// progress prints a line per table and forwards every event to the
// metrics collector.
type progress struct {
	*metrics.Collector
	quiet bool
}

func (p *progress) TableStarted(table string, rows int) {
	p.Collector.TableStarted(table, rows)
	if !p.quiet {
		color.Cyan("  📝 Generating %s (%d rows)...", table, rows)
	}
}

func (p *progress) TableCompleted(table string, rows int, elapsed time.Duration) {
	p.Collector.TableCompleted(table, rows, elapsed)
	if !p.quiet {
		color.Green("  ✅ %s: %d rows in %s", table, rows, elapsed.Round(time.Millisecond))
	}
}

func (p *progress) TableFailed(table string, err error) {
	p.Collector.TableFailed(table, err)
	color.Red("  ❌ %s failed", table)
}
