// Package sink holds the export collaborators that consume generated rows:
// CSV and JSON Lines files, and SQL databases. Each type implements
// seeder.Sink and can be handed to Engine.Stream.
package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
)

// Closer is a sink holding resources that must be released after a run,
// whether or not the run succeeded.
type Closer interface {
	seeder.Sink
	Close() error
}

// Replay writes a retained result to dst in generation order.
func Replay(ctx context.Context, s *schema.Schema, res *seeder.Result, dst seeder.Sink) error {
	for _, out := range res.Tables {
		t := s.Table(out.Name)
		if t == nil {
			return fmt.Errorf("table %s is not part of the schema", out.Name)
		}
		if len(out.Rows) != out.Count {
			return fmt.Errorf("table %s was streamed and holds no rows", out.Name)
		}
		if err := dst.BeginTable(ctx, t); err != nil {
			return err
		}
		for _, row := range out.Rows {
			if err := dst.WriteRow(ctx, t, row); err != nil {
				return err
			}
		}
		if err := dst.EndTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// formatText renders a value for text formats. Null is the empty string.
func formatText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return formatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

// formatTime keeps plain dates short and writes anything with a clock
// part as RFC 3339.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(schema.DateLayout)
	}
	return t.Format(time.RFC3339)
}
