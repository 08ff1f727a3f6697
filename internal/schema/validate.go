package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ViolationKind categorises a schema problem.
type ViolationKind int

const (
	KindInvalidDefinition ViolationKind = iota
	KindDuplicateTable
	KindDuplicateField
	KindMultiplePrimaryKeys
	KindInvalidForeignKey
	KindInvalidProbability
	KindInvalidLength
	KindEmptyDomain
	KindInvalidDomain
	KindUnknownRule
	KindInvalidType
	KindInvalidPrimaryKey
	KindEmptyParent
)

func (k ViolationKind) String() string {
	switch k {
	case KindDuplicateTable:
		return "duplicate_table"
	case KindDuplicateField:
		return "duplicate_field"
	case KindMultiplePrimaryKeys:
		return "multiple_primary_keys"
	case KindInvalidForeignKey:
		return "invalid_foreign_key"
	case KindInvalidProbability:
		return "invalid_probability"
	case KindInvalidLength:
		return "invalid_length"
	case KindEmptyDomain:
		return "empty_domain"
	case KindInvalidDomain:
		return "invalid_domain"
	case KindUnknownRule:
		return "unknown_rule"
	case KindInvalidType:
		return "invalid_type"
	case KindInvalidPrimaryKey:
		return "invalid_primary_key"
	case KindEmptyParent:
		return "empty_parent"
	default:
		return "invalid_definition"
	}
}

// Violation is a single problem found in a schema.
type Violation struct {
	Kind    ViolationKind
	Table   string
	Field   string
	Message string
}

func (v Violation) String() string {
	loc := v.Table
	if v.Field != "" {
		loc += "." + v.Field
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Kind, loc, v.Message)
}

// Error carries every violation found by Validate.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Violations) == 1 {
		return "invalid schema: " + e.Violations[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid schema: %d problems", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Has reports whether any violation is of kind k.
func (e *Error) Has(k ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// RuleChecker reports whether a value rule is registered.
type RuleChecker interface {
	HasRule(id string) bool
}

var structValidator = validator.New()

// Validate checks s and returns a *Error listing every problem, or nil.
// When rules is nil, rule identifiers are not checked.
func Validate(s *Schema, rules RuleChecker) error {
	v := &validation{schema: s, rules: rules}
	v.run()
	if len(v.violations) == 0 {
		return nil
	}
	return &Error{Violations: v.violations}
}

type validation struct {
	schema     *Schema
	rules      RuleChecker
	violations []Violation
}

func (v *validation) add(kind ViolationKind, table, field, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Kind:    kind,
		Table:   table,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validation) run() {
	if s := v.schema; s == nil || len(s.Tables) == 0 {
		v.add(KindInvalidDefinition, "", "", "schema declares no tables")
		return
	}

	seen := make(map[string]bool)
	for i := range v.schema.Tables {
		t := &v.schema.Tables[i]
		if t.Name != "" && seen[t.Name] {
			v.add(KindDuplicateTable, t.Name, "", "table declared more than once")
		}
		seen[t.Name] = true
		v.table(t)
	}
}

func (v *validation) table(t *Table) {
	v.tags(t, t.Name, "")

	names := make(map[string]bool)
	primaryKeys := 0
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Name != "" && names[f.Name] {
			v.add(KindDuplicateField, t.Name, f.Name, "field declared more than once")
		}
		names[f.Name] = true
		if f.PrimaryKey {
			primaryKeys++
		}
		v.field(t, f)
	}
	if primaryKeys > 1 {
		v.add(KindMultiplePrimaryKeys, t.Name, "", "%d fields are marked primary_key, at most one is allowed", primaryKeys)
	}
}

func (v *validation) field(t *Table, f *Field) {
	v.tags(f, t.Name, f.Name)

	if !f.Type.Valid() {
		v.add(KindInvalidType, t.Name, f.Name, "unknown data type %q", f.Type)
		return
	}
	if !f.Nullable && f.NullProbability != 0 {
		v.add(KindInvalidProbability, t.Name, f.Name, "null_probability set on a non-nullable field")
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		v.add(KindInvalidDefinition, t.Name, f.Name, "min %v is greater than max %v", *f.Min, *f.Max)
	}
	if f.Length != nil && *f.Length < 1 && (f.Type == TypeInteger || f.Type == TypeDecimal) {
		v.add(KindInvalidLength, t.Name, f.Name, "length %d leaves no digits for a %s", *f.Length, f.Type)
	}
	if f.PrimaryKey {
		v.primaryKey(t, f)
	}
	if f.References != nil {
		v.reference(t, f)
		return
	}
	if f.Domain != nil {
		v.domain(t, f)
		return
	}
	v.rule(t, f)
}

func (v *validation) primaryKey(t *Table, f *Field) {
	if f.Nullable {
		v.add(KindInvalidPrimaryKey, t.Name, f.Name, "primary key cannot be nullable")
	}
	if f.Rule != "" || f.Domain != nil || f.References != nil {
		return
	}
	if !hasSurrogate(f.Type) {
		v.add(KindInvalidPrimaryKey, t.Name, f.Name, "no surrogate key exists for type %s; set a rule or domain", f.Type)
	}
}

func (v *validation) reference(t *Table, f *Field) {
	ref := f.References
	parent := v.schema.Table(ref.Table)
	if parent == nil {
		v.add(KindInvalidForeignKey, t.Name, f.Name, "references unknown table %q", ref.Table)
		return
	}
	target := parent.Field(ref.Field)
	if target == nil {
		v.add(KindInvalidForeignKey, t.Name, f.Name, "references unknown field %s", ref)
		return
	}
	if !target.IsKey() {
		v.add(KindInvalidForeignKey, t.Name, f.Name, "target %s is neither a primary key nor unique", ref)
	}
	if target.Nullable {
		v.add(KindInvalidForeignKey, t.Name, f.Name, "target %s is nullable", ref)
	}
	if target.Type != f.Type {
		v.add(KindInvalidForeignKey, t.Name, f.Name, "type %s does not match target %s of type %s", f.Type, ref, target.Type)
	}
	alwaysNull := f.Nullable && f.NullProbability >= 1
	if t.Rows > 0 && parent.Rows == 0 && !alwaysNull {
		v.add(KindEmptyParent, t.Name, f.Name, "parent table %q generates no rows", parent.Name)
	}
}

func (v *validation) domain(t *Table, f *Field) {
	if len(f.Domain) == 0 {
		v.add(KindEmptyDomain, t.Name, f.Name, "domain is empty")
		return
	}
	seen := make(map[any]bool, len(f.Domain))
	for _, raw := range f.Domain {
		val, err := Coerce(f.Type, raw)
		if err != nil || val == nil {
			v.add(KindInvalidDomain, t.Name, f.Name, "domain value %v is not a valid %s", raw, f.Type)
			continue
		}
		if seen[val] {
			v.add(KindInvalidDomain, t.Name, f.Name, "domain value %v listed more than once", raw)
		}
		seen[val] = true
		// Domain values are never truncated; one longer than length is rejected.
		if f.Length != nil && textual(f.Type) && TextLength(val) > *f.Length {
			v.add(KindInvalidLength, t.Name, f.Name, "domain value %v is longer than length %d", raw, *f.Length)
		}
	}
	if f.Weights == nil {
		return
	}
	if len(f.Weights) != len(f.Domain) {
		v.add(KindInvalidDomain, t.Name, f.Name, "%d weights given for %d domain values", len(f.Weights), len(f.Domain))
		return
	}
	var total float64
	for _, w := range f.Weights {
		if w < 0 {
			v.add(KindInvalidDomain, t.Name, f.Name, "negative weight %v", w)
			return
		}
		total += w
	}
	if total <= 0 {
		v.add(KindInvalidDomain, t.Name, f.Name, "weights sum to zero")
	}
}

func (v *validation) rule(t *Table, f *Field) {
	if v.rules == nil {
		return
	}
	id := f.Rule
	if id == "" {
		if f.PrimaryKey {
			return
		}
		id = string(f.Type)
	}
	if !v.rules.HasRule(id) {
		v.add(KindUnknownRule, t.Name, f.Name, "no value provider registered for rule %q", id)
	}
}

// tags runs the struct tag checks and maps each failure onto a violation.
func (v *validation) tags(obj any, table, field string) {
	err := structValidator.Struct(obj)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.add(KindInvalidDefinition, table, field, "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		kind := KindInvalidDefinition
		switch fe.StructField() {
		case "NullProbability":
			kind = KindInvalidProbability
		case "Length":
			kind = KindInvalidLength
		case "Cardinality", "Table", "Field":
			kind = KindInvalidForeignKey
		}
		v.add(kind, table, field, "%s failed %q%s", strings.ToLower(fe.Field()), fe.Tag(), param(fe.Param()))
	}
}

func param(p string) string {
	if p == "" {
		return ""
	}
	return " (" + p + ")"
}

func textual(t DataType) bool {
	return t == TypeString || t == TypeInteger || t == TypeDecimal
}
