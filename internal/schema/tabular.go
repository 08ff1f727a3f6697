package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultTableName is used for tabular rows that name no table.
const DefaultTableName = "default"

// ParseTabular reads the spreadsheet form of a schema: one CSV row per
// field, with a header naming the columns. Recognised headers are table,
// rows, name, datatype (or type), rule, length, domain, weights, min, max,
// completeness, null_probability, unique, primary_key and references
// (table.field). Lists use "|" as separator. A completeness below 1 makes the
// field nullable with a null probability of 1-completeness.
func ParseTabular(r io.Reader) (*Schema, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New(`tabular schema needs a "name" column`)
	}

	var s Schema
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := tabularRow{cols: cols, record: record}
		if row.get("name") == "" {
			continue
		}
		if err := s.addTabular(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if len(s.Tables) == 0 {
		return nil, errors.New("tabular schema has no fields")
	}
	s.normalize()
	return &s, nil
}

type tabularRow struct {
	cols   map[string]int
	record []string
}

func (r tabularRow) get(keys ...string) string {
	for _, k := range keys {
		if i, ok := r.cols[k]; ok && i < len(r.record) {
			if v := strings.TrimSpace(r.record[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s *Schema) addTabular(row tabularRow) error {
	tableName := row.get("table")
	if tableName == "" {
		tableName = DefaultTableName
	}
	t := s.Table(tableName)
	if t == nil {
		s.Tables = append(s.Tables, Table{Name: tableName})
		t = &s.Tables[len(s.Tables)-1]
	}
	if v := row.get("rows"); v != "" && t.Rows == 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("rows: %w", err)
		}
		t.Rows = n
	}

	f := Field{
		Name: row.get("name"),
		Type: DataType(row.get("datatype", "type")),
		Rule: row.get("rule"),
	}

	var err error
	if v := row.get("length"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return fmt.Errorf("length: %w", perr)
		}
		f.Length = &n
	}
	if f.Min, err = optionalFloat(row.get("min")); err != nil {
		return fmt.Errorf("min: %w", err)
	}
	if f.Max, err = optionalFloat(row.get("max")); err != nil {
		return fmt.Errorf("max: %w", err)
	}
	if v := row.get("domain"); v != "" {
		for _, item := range splitList(v) {
			f.Domain = append(f.Domain, item)
		}
	}
	if v := row.get("weights"); v != "" {
		for _, item := range splitList(v) {
			w, perr := strconv.ParseFloat(item, 64)
			if perr != nil {
				return fmt.Errorf("weights: %w", perr)
			}
			f.Weights = append(f.Weights, w)
		}
	}
	if f.Unique, err = optionalBool(row.get("unique")); err != nil {
		return fmt.Errorf("unique: %w", err)
	}
	if f.PrimaryKey, err = optionalBool(row.get("primary_key", "pk")); err != nil {
		return fmt.Errorf("primary_key: %w", err)
	}
	if v := row.get("completeness"); v != "" {
		c, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("completeness: %w", perr)
		}
		if c < 1 {
			f.Nullable = true
			f.NullProbability = 1 - c
		}
	}
	if v := row.get("null_probability"); v != "" {
		p, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("null_probability: %w", perr)
		}
		f.Nullable = true
		f.NullProbability = p
	}
	if v := row.get("references"); v != "" {
		table, field, ok := strings.Cut(v, ".")
		if !ok {
			return fmt.Errorf("references %q must be table.field", v)
		}
		f.References = &Reference{Table: table, Field: field}
	}

	t.Fields = append(t.Fields, f)
	return nil
}

func splitList(v string) []string {
	sep := "|"
	if !strings.Contains(v, sep) {
		sep = ","
	}
	parts := strings.Split(v, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optionalBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
