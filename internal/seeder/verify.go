package seeder

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
)

// VerificationError lists every constraint violation found by Verify.
type VerificationError struct {
	Problems []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%d constraint violations:\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Verify re-checks a generated result against s: row counts, nullability,
// domains, lengths, uniqueness and referential integrity. Tables of a
// streamed result carry no rows and are skipped.
func Verify(s *schema.Schema, res *Result) error {
	v := &verifier{schema: s, result: res}
	for _, out := range res.Tables {
		v.table(out)
	}
	if len(v.problems) == 0 {
		return nil
	}
	return &VerificationError{Problems: v.problems}
}

type verifier struct {
	schema   *schema.Schema
	result   *Result
	problems []string
}

func (v *verifier) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *verifier) table(out *Table) {
	t := v.schema.Table(out.Name)
	if t == nil {
		v.add("%s: table is not declared in the schema", out.Name)
		return
	}
	if out.Count != t.Rows {
		v.add("%s: %d rows generated, %d requested", t.Name, out.Count, t.Rows)
	}
	if len(out.Rows) != out.Count {
		return
	}
	for i := range t.Fields {
		v.field(t, &t.Fields[i], out.Column(t.Fields[i].Name))
	}
}

func (v *verifier) field(t *schema.Table, f *schema.Field, column []any) {
	name := t.Name + "." + f.Name

	var allowed map[any]bool
	switch {
	case f.References != nil:
		allowed = v.parentKeys(name, f.References)
	case f.Domain != nil:
		allowed = make(map[any]bool, len(f.Domain))
		for _, raw := range f.Domain {
			if d, err := schema.Coerce(f.Type, raw); err == nil {
				allowed[valueKey(d)] = true
			}
		}
	}

	seen := make(map[any]int)
	for row, val := range column {
		if val == nil {
			if !f.Nullable {
				v.add("%s: null at row %d in a non-nullable field", name, row)
			}
			continue
		}
		key := valueKey(val)
		if f.IsKey() {
			if first, dup := seen[key]; dup {
				v.add("%s: value %v repeated at rows %d and %d", name, val, first, row)
			} else {
				seen[key] = row
			}
		}
		switch {
		case f.References != nil:
			if allowed != nil && !allowed[key] {
				v.add("%s: value %v at row %d does not exist in %s", name, val, row, f.References)
			}
		case f.Domain != nil:
			if !allowed[key] {
				v.add("%s: value %v at row %d is outside the domain", name, val, row)
			}
		case f.Length != nil && bounded(f.Type):
			if n := schema.TextLength(val); n > *f.Length {
				v.add("%s: value at row %d has length %d, above %d", name, row, n, *f.Length)
			}
		}
	}
}

// parentKeys returns the keys present in the referenced column, or nil
// after reporting a problem when the parent is not part of the result.
func (v *verifier) parentKeys(name string, ref *schema.Reference) map[any]bool {
	parent := v.result.Table(ref.Table)
	if parent == nil || len(parent.Rows) != parent.Count {
		v.add("%s: parent table %s is not available for checking", name, ref.Table)
		return nil
	}
	keys := make(map[any]bool, parent.Count)
	for _, k := range parent.Column(ref.Field) {
		if k != nil {
			keys[valueKey(k)] = true
		}
	}
	return keys
}

func bounded(t schema.DataType) bool {
	return t == schema.TypeString || t == schema.TypeInteger || t == schema.TypeDecimal
}
