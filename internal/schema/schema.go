package schema

import (
	"fmt"
	"strings"
)

// DataType is the logical type of a generated column.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInteger DataType = "integer"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
	TypeDecimal DataType = "decimal"
)

var dataTypeAliases = map[string]DataType{
	"string":    TypeString,
	"str":       TypeString,
	"text":      TypeString,
	"category":  TypeString,
	"integer":   TypeInteger,
	"int":       TypeInteger,
	"date":      TypeDate,
	"datetime":  TypeDate,
	"timestamp": TypeDate,
	"boolean":   TypeBoolean,
	"bool":      TypeBoolean,
	"decimal":   TypeDecimal,
	"float":     TypeDecimal,
	"numeric":   TypeDecimal,
}

// ParseDataType maps a user supplied type name (case-insensitive, with the
// usual aliases) onto a DataType.
func ParseDataType(s string) (DataType, error) {
	if t, ok := dataTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown data type: %q", s)
}

// Valid reports whether t is one of the supported data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeDate, TypeBoolean, TypeDecimal:
		return true
	}
	return false
}

// Reference points a field at the key field of a parent table.
type Reference struct {
	Table string `json:"table" yaml:"table" validate:"required"`
	Field string `json:"field" yaml:"field" validate:"required"`
	// Cardinality is a soft hint for how many children should reference each
	// parent key. Zero means uniform sampling.
	Cardinality float64 `json:"cardinality,omitempty" yaml:"cardinality,omitempty" validate:"gte=0"`
}

func (r Reference) String() string {
	return r.Table + "." + r.Field
}

// Field describes one generated column.
type Field struct {
	Name            string         `json:"name" yaml:"name" validate:"required"`
	Type            DataType       `json:"type" yaml:"type"`
	Rule            string         `json:"rule,omitempty" yaml:"rule,omitempty"`
	Nullable        bool           `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	NullProbability float64        `json:"null_probability,omitempty" yaml:"null_probability,omitempty" validate:"gte=0,lte=1"`
	Length          *int           `json:"length,omitempty" yaml:"length,omitempty" validate:"omitempty,gte=0"`
	Domain          []any          `json:"domain,omitempty" yaml:"domain,omitempty"`
	Weights         []float64      `json:"weights,omitempty" yaml:"weights,omitempty"`
	Min             *float64       `json:"min,omitempty" yaml:"min,omitempty"`
	Max             *float64       `json:"max,omitempty" yaml:"max,omitempty"`
	Unique          bool           `json:"unique,omitempty" yaml:"unique,omitempty"`
	PrimaryKey      bool           `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	References      *Reference     `json:"references,omitempty" yaml:"references,omitempty"`
	Params          map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// IsKey reports whether values of the field must be pairwise distinct.
func (f *Field) IsKey() bool {
	return f.Unique || f.PrimaryKey
}

// IsForeignKey reports whether the field takes its values from a parent pool.
func (f *Field) IsForeignKey() bool {
	return f.References != nil
}

// Table describes one generated table.
type Table struct {
	Name   string  `json:"name" yaml:"name" validate:"required"`
	Rows   int     `json:"rows,omitempty" yaml:"rows,omitempty" validate:"gte=0"`
	Fields []Field `json:"fields" yaml:"fields" validate:"required,min=1"`
}

// Field returns the named field, or nil.
func (t *Table) Field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// FieldIndex returns the position of the named field, or -1.
func (t *Table) FieldIndex(name string) int {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// PrimaryKey returns the primary key field, or nil when the table has none.
// With several primary keys (an invalid schema) the first one is returned.
func (t *Table) PrimaryKey() *Field {
	for i := range t.Fields {
		if t.Fields[i].PrimaryKey {
			return &t.Fields[i]
		}
	}
	return nil
}

// Columns returns the field names in declaration order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Dependencies returns the distinct parent tables of t in field order.
func (t *Table) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, f := range t.Fields {
		if f.References == nil || seen[f.References.Table] {
			continue
		}
		seen[f.References.Table] = true
		deps = append(deps, f.References.Table)
	}
	return deps
}

// Edge is a foreign key relationship; the child must be generated after the parent.
type Edge struct {
	Child       string
	ChildField  string
	Parent      string
	ParentField string
}

// Schema is the full declaration of the tables to generate. Table order is
// the declaration order and is used to break ties when ordering generation.
type Schema struct {
	Tables []Table `json:"tables" yaml:"tables" validate:"required,min=1"`
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns table names in declaration order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Edges returns every foreign key edge in declaration order.
func (s *Schema) Edges() []Edge {
	var edges []Edge
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if f.References == nil {
				continue
			}
			edges = append(edges, Edge{
				Child:       t.Name,
				ChildField:  f.Name,
				Parent:      f.References.Table,
				ParentField: f.References.Field,
			})
		}
	}
	return edges
}

// Referenced reports whether some foreign key targets table.field.
func (s *Schema) Referenced(table, field string) bool {
	for _, e := range s.Edges() {
		if e.Parent == table && e.ParentField == field {
			return true
		}
	}
	return false
}

// ApplyCounts sets the row count of every table that does not declare one
// to def, then applies the per-table overrides. Override keys are matched
// exactly first and then lower-cased, since viper folds map keys.
func (s *Schema) ApplyCounts(def int, perTable map[string]int) {
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Rows == 0 {
			t.Rows = def
		}
		if n, ok := perTable[t.Name]; ok {
			t.Rows = n
		} else if n, ok := perTable[strings.ToLower(t.Name)]; ok {
			t.Rows = n
		}
	}
}
