package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
)

// CSV writes one <table>.csv file per table into a directory, with a
// header row of column names.
type CSV struct {
	dir    string
	file   *os.File
	writer *csv.Writer
	record []string
	files  []string
}

func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

func (c *CSV) BeginTable(_ context.Context, t *schema.Table) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(c.dir, t.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file for %s: %w", t.Name, err)
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.record = make([]string, len(t.Fields))
	c.files = append(c.files, path)

	return c.writer.Write(t.Columns())
}

func (c *CSV) WriteRow(_ context.Context, _ *schema.Table, row seeder.Row) error {
	for i, v := range row.Values {
		c.record[i] = formatText(v)
	}
	return c.writer.Write(c.record)
}

func (c *CSV) EndTable(_ context.Context, t *schema.Table) error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.Close()
		return fmt.Errorf("failed to write CSV file for %s: %w", t.Name, err)
	}
	return c.Close()
}

// Close closes the file of an unfinished table, if any.
func (c *CSV) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file, c.writer = nil, nil
	return err
}

// Files lists the files written so far, in table order.
func (c *CSV) Files() []string {
	return c.files
}
