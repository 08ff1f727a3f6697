package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a schema document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".sql", ".ddl":
		return FormatSQL, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported schema file %s (expected .yaml, .yml, .json, .sql or .csv)", path)
}

// Load reads a schema document from path. A directory is read as a set of
// .sql files, concatenated in name order.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat schema %s: %w", path, err)
	}
	if info.IsDir() {
		return loadSQLDir(path)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document in the given format.
func Parse(data []byte, format Format) (*Schema, error) {
	var s Schema
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, err
		}
	case FormatSQL:
		return ParseDDL(string(data))
	case FormatCSV:
		return ParseTabular(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown schema format %q", format)
	}
	s.normalize()
	return &s, nil
}

func loadSQLDir(dir string) (*Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		b.Write(data)
		b.WriteString(";\n")
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("no .sql files found in %s", dir)
	}
	return ParseDDL(b.String())
}

// normalize resolves type aliases and fills the default string type.
// Unknown types are left alone for Validate to report.
func (s *Schema) normalize() {
	for i := range s.Tables {
		for j := range s.Tables[i].Fields {
			f := &s.Tables[i].Fields[j]
			if f.Type == "" {
				f.Type = TypeString
				continue
			}
			if t, err := ParseDataType(string(f.Type)); err == nil {
				f.Type = t
			}
		}
	}
}
