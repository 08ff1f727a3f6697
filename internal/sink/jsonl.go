package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/seeder"
)

// JSONLines writes one <table>.jsonl file per table. Each line is an
// object whose keys follow the table's field order.
type JSONLines struct {
	dir   string
	file  *os.File
	buf   *bufio.Writer
	keys  [][]byte
	files []string
}

func NewJSONLines(dir string) *JSONLines {
	return &JSONLines{dir: dir}
}

func (j *JSONLines) BeginTable(_ context.Context, t *schema.Table) error {
	if err := os.MkdirAll(j.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(j.dir, t.Name+".jsonl")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file for %s: %w", t.Name, err)
	}
	j.file = file
	j.buf = bufio.NewWriter(file)
	j.files = append(j.files, path)

	j.keys = make([][]byte, len(t.Fields))
	for i, f := range t.Fields {
		key, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		j.keys[i] = key
	}
	return nil
}

func (j *JSONLines) WriteRow(_ context.Context, t *schema.Table, row seeder.Row) error {
	j.buf.WriteByte('{')
	for i, v := range row.Values {
		if i > 0 {
			j.buf.WriteByte(',')
		}
		j.buf.Write(j.keys[i])
		j.buf.WriteByte(':')

		if ts, ok := v.(time.Time); ok {
			v = formatTime(ts)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s.%s: %w", t.Name, t.Fields[i].Name, err)
		}
		j.buf.Write(data)
	}
	j.buf.WriteByte('}')
	_, err := j.buf.WriteString("\n")
	return err
}

func (j *JSONLines) EndTable(_ context.Context, t *schema.Table) error {
	if err := j.buf.Flush(); err != nil {
		j.Close()
		return fmt.Errorf("failed to write JSON file for %s: %w", t.Name, err)
	}
	return j.Close()
}

// Close closes the file of an unfinished table, if any.
func (j *JSONLines) Close() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file, j.buf = nil, nil
	return err
}

// Files lists the files written so far, in table order.
func (j *JSONLines) Files() []string {
	return j.files
}
