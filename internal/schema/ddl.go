package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultNullProbability is applied to nullable columns read from DDL.
const DefaultNullProbability = 0.2

var (
	commentRegex     = regexp.MustCompile(`--.*|/\*[\s\S]*?\*/`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	createTableRegex = regexp.MustCompile(`(?i)^CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?["` + "`" + `]?(\w+)["` + "`" + `]?\s*\(`)
	createTypeRegex  = regexp.MustCompile(`(?i)^CREATE\s+TYPE\s+["]?(\w+)["]?\s+AS\s+ENUM\s*\(\s*([^)]*)\)`)
	createIndexRegex = regexp.MustCompile(`(?i)^CREATE\s+UNIQUE\s+INDEX\s+(?:IF\s+NOT\s+EXISTS\s+)?["]?\w+["]?\s+ON\s+["` + "`" + `]?(\w+)["` + "`" + `]?\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)`)
	foreignKeyRegex  = regexp.MustCompile(`(?i)FOREIGN\s+KEY\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)\s*REFERENCES\s+["` + "`" + `]?(\w+)["` + "`" + `]?\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)`)
	referencesRegex  = regexp.MustCompile(`(?i)REFERENCES\s+["` + "`" + `]?(\w+)["` + "`" + `]?\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)`)
	primaryKeyRegex  = regexp.MustCompile(`(?i)^PRIMARY\s+KEY\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)$`)
	uniqueRegex      = regexp.MustCompile(`(?i)^UNIQUE\s*\(\s*["` + "`" + `]?(\w+)["` + "`" + `]?\s*\)$`)
	enumValueRegex   = regexp.MustCompile(`'([^']*)'`)
	typeLengthRegex  = regexp.MustCompile(`\(\s*(\d+)`)
)

// ParseDDL builds a schema from CREATE TABLE statements. Enum types,
// single-column UNIQUE indexes and foreign keys are honoured; value rules
// are inferred from column names.
func ParseDDL(sql string) (*Schema, error) {
	p := &ddlParser{enums: make(map[string][]any)}
	for _, stmt := range splitStatements(cleanSQL(sql)) {
		if err := p.statement(stmt); err != nil {
			return nil, err
		}
	}
	if len(p.schema.Tables) == 0 {
		return nil, fmt.Errorf("no CREATE TABLE statements found")
	}
	p.requireReferencedKeys()
	return &p.schema, nil
}

// requireReferencedKeys marks every column a foreign key points at NOT NULL.
func (p *ddlParser) requireReferencedKeys() {
	for _, e := range p.schema.Edges() {
		parent := p.schema.Table(e.Parent)
		if parent == nil {
			continue
		}
		if f := parent.Field(e.ParentField); f != nil {
			f.Nullable = false
			f.NullProbability = 0
		}
	}
}

type ddlParser struct {
	schema Schema
	enums  map[string][]any
}

func cleanSQL(sql string) string {
	sql = commentRegex.ReplaceAllString(sql, "")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(sql, " "))
}

func splitStatements(sql string) []string {
	statements := strings.Split(sql, ";")
	result := make([]string, 0, len(statements))
	for _, stmt := range statements {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}

func (p *ddlParser) statement(stmt string) error {
	if m := createTypeRegex.FindStringSubmatch(stmt); m != nil {
		var values []any
		for _, v := range enumValueRegex.FindAllStringSubmatch(m[2], -1) {
			values = append(values, v[1])
		}
		p.enums[strings.ToLower(m[1])] = values
		return nil
	}
	if m := createIndexRegex.FindStringSubmatch(stmt); m != nil {
		if t := p.schema.Table(m[1]); t != nil {
			if f := t.Field(m[2]); f != nil {
				f.Unique = true
			}
		}
		return nil
	}
	if m := createTableRegex.FindStringSubmatch(stmt); m != nil {
		return p.createTable(m[1], stmt)
	}
	return nil
}

func (p *ddlParser) createTable(name, stmt string) error {
	start, end := strings.Index(stmt, "("), strings.LastIndex(stmt, ")")
	if start == -1 || end <= start {
		return fmt.Errorf("invalid CREATE TABLE syntax for %s", name)
	}

	table := Table{Name: name}
	var constraints []string
	for _, def := range splitColumnDefinitions(stmt[start+1 : end]) {
		if def = strings.TrimSpace(def); def == "" {
			continue
		}
		if isTableConstraint(def) {
			constraints = append(constraints, def)
			continue
		}
		f, err := p.column(def)
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		table.Fields = append(table.Fields, f)
	}

	for _, c := range constraints {
		applyConstraint(&table, c)
	}
	p.schema.Tables = append(p.schema.Tables, table)
	return nil
}

func splitColumnDefinitions(defs string) []string {
	var result []string
	var current strings.Builder
	depth := 0
	for _, ch := range defs {
		switch {
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			result = append(result, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func isTableConstraint(def string) bool {
	upper := strings.ToUpper(def)
	for _, prefix := range []string{"PRIMARY KEY", "FOREIGN KEY", "UNIQUE", "CHECK", "CONSTRAINT", "INDEX", "KEY "} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func applyConstraint(t *Table, def string) {
	// CONSTRAINT name FOREIGN KEY ... is matched anywhere in the definition.
	if m := foreignKeyRegex.FindStringSubmatch(def); m != nil {
		if f := t.Field(m[1]); f != nil {
			f.References = &Reference{Table: m[2], Field: m[3]}
			f.Rule = ""
		}
		return
	}
	if m := primaryKeyRegex.FindStringSubmatch(def); m != nil {
		if f := t.Field(m[1]); f != nil {
			f.PrimaryKey = true
			f.Nullable = false
			f.NullProbability = 0
			// Name-inferred rules give way to the sequential surrogate.
			if f.Rule != "uuid" && hasSurrogate(f.Type) {
				f.Rule = ""
			}
		}
		return
	}
	if m := uniqueRegex.FindStringSubmatch(def); m != nil {
		if f := t.Field(m[1]); f != nil {
			f.Unique = true
		}
	}
}

func (p *ddlParser) column(def string) (Field, error) {
	parts := strings.Fields(def)
	if len(parts) < 2 {
		return Field{}, fmt.Errorf("invalid column definition: %s", def)
	}

	name := strings.Trim(parts[0], "\"`'")
	sqlType := columnType(strings.TrimSpace(def[len(parts[0]):]))
	upper := strings.ToUpper(def)
	upperType := strings.ToUpper(sqlType)

	f := Field{
		Name:     name,
		Nullable: !strings.Contains(upper, "NOT NULL"),
	}
	f.PrimaryKey = strings.Contains(upper, "PRIMARY KEY") || strings.Contains(upperType, "SERIAL")
	f.Unique = strings.Contains(upper, "UNIQUE")
	if f.PrimaryKey {
		f.Nullable = false
	}
	if f.Nullable {
		f.NullProbability = DefaultNullProbability
	}

	if values, ok := p.enums[strings.ToLower(strings.Trim(sqlType, `"`))]; ok {
		f.Type = TypeString
		f.Domain = values
	} else {
		f.Type = mapSQLType(upperType)
		if f.Type == TypeString {
			if m := typeLengthRegex.FindStringSubmatch(sqlType); m != nil {
				n, _ := strconv.Atoi(m[1])
				f.Length = &n
			}
		}
		if strings.Contains(upperType, "UUID") {
			f.Rule = "uuid"
		}
	}

	if m := referencesRegex.FindStringSubmatch(def); m != nil {
		f.References = &Reference{Table: m[1], Field: m[2]}
	}
	if f.Rule == "" && f.Domain == nil && f.References == nil && !f.PrimaryKey {
		f.Rule = InferRule(name, f.Type)
	}
	return f, nil
}

// columnType extracts the type token (with its parenthesised arguments)
// from the text that follows a column name.
func columnType(rest string) string {
	upper := strings.ToUpper(rest)
	for _, multi := range []string{"TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE", "DOUBLE PRECISION", "CHARACTER VARYING"} {
		if strings.HasPrefix(upper, multi) {
			return rest[:len(multi)] + lengthSuffix(rest[len(multi):])
		}
	}
	depth := 0
	for i, ch := range rest {
		switch {
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return rest[:i+1]
			}
		case depth == 0 && ch == ' ':
			return rest[:i]
		}
	}
	return rest
}

func lengthSuffix(s string) string {
	s = strings.TrimLeft(s, " ")
	if strings.HasPrefix(s, "(") {
		if end := strings.Index(s, ")"); end != -1 {
			return s[:end+1]
		}
	}
	return ""
}

func hasSurrogate(t DataType) bool {
	return t == TypeInteger || t == TypeString || t == TypeDecimal
}

func mapSQLType(upper string) DataType {
	if idx := strings.Index(upper, "("); idx > 0 {
		upper = upper[:idx]
	}
	switch {
	case strings.Contains(upper, "INT") || strings.Contains(upper, "SERIAL"):
		return TypeInteger
	case strings.Contains(upper, "BOOL"):
		return TypeBoolean
	case strings.Contains(upper, "DATE") || strings.Contains(upper, "TIME"):
		return TypeDate
	case strings.Contains(upper, "DECIMAL") || strings.Contains(upper, "NUMERIC") ||
		strings.Contains(upper, "FLOAT") || strings.Contains(upper, "DOUBLE") ||
		strings.Contains(upper, "REAL") || strings.Contains(upper, "MONEY"):
		return TypeDecimal
	}
	return TypeString
}

// InferRule picks a value rule from a column name, falling back to the
// default rule of the column's type.
func InferRule(column string, t DataType) string {
	if t != TypeString {
		return string(t)
	}
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "email"):
		return "email"
	case name == "first_name" || name == "firstname":
		return "first_name"
	case name == "last_name" || name == "lastname" || name == "surname":
		return "last_name"
	case strings.Contains(name, "company"):
		return "company"
	case strings.Contains(name, "name") && !strings.Contains(name, "file") && !strings.Contains(name, "user"):
		return "name"
	case strings.Contains(name, "title"):
		return "title"
	case strings.Contains(name, "description") || strings.Contains(name, "content"):
		return "sentence"
	case strings.Contains(name, "url") || strings.Contains(name, "link"):
		return "url"
	case strings.Contains(name, "phone"):
		return "phone"
	case strings.Contains(name, "address"):
		return "address"
	case strings.Contains(name, "uuid") || strings.Contains(name, "guid"):
		return "uuid"
	}
	return "word"
}
