package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ruleSet map[string]bool

func (r ruleSet) HasRule(id string) bool { return r[id] }

var knownRules = ruleSet{"string": true, "integer": true, "decimal": true, "boolean": true, "date": true, "name": true}

func intPtr(n int) *int { return &n }

func validSchema() *Schema {
	return &Schema{Tables: []Table{
		{Name: "users", Rows: 10, Fields: []Field{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "name", Type: TypeString, Rule: "name", Length: intPtr(20)},
			{Name: "tier", Type: TypeString, Domain: []any{"free", "pro"}, Weights: []float64{3, 1}},
			{Name: "born", Type: TypeDate, Nullable: true, NullProbability: 0.1},
		}},
		{Name: "posts", Rows: 30, Fields: []Field{
			{Name: "author_id", Type: TypeInteger, References: &Reference{Table: "users", Field: "id", Cardinality: 3}},
			{Name: "score", Type: TypeDecimal},
		}},
	}}
}

func TestValidateAcceptsValidSchema(t *testing.T) {
	assert.NoError(t, Validate(validSchema(), knownRules))
	assert.NoError(t, Validate(validSchema(), nil))
}

func TestValidateEmptySchema(t *testing.T) {
	err := Validate(&Schema{}, nil)
	var schemaErr *Error
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.Has(KindInvalidDefinition))
}

func TestValidateViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
		kind   ViolationKind
	}{
		{"duplicate table", func(s *Schema) {
			s.Tables = append(s.Tables, Table{Name: "users", Fields: []Field{{Name: "x", Type: TypeString}}})
		}, KindDuplicateTable},
		{"duplicate field", func(s *Schema) {
			s.Tables[0].Fields = append(s.Tables[0].Fields, Field{Name: "name", Type: TypeString})
		}, KindDuplicateField},
		{"two primary keys", func(s *Schema) {
			s.Tables[0].Fields[1].PrimaryKey = true
		}, KindMultiplePrimaryKeys},
		{"unknown parent table", func(s *Schema) {
			s.Tables[1].Fields[0].References.Table = "people"
		}, KindInvalidForeignKey},
		{"unknown parent field", func(s *Schema) {
			s.Tables[1].Fields[0].References.Field = "uid"
		}, KindInvalidForeignKey},
		{"parent field not a key", func(s *Schema) {
			s.Tables[1].Fields[0].References.Field = "name"
			s.Tables[1].Fields[0].Type = TypeString
		}, KindInvalidForeignKey},
		{"type mismatch", func(s *Schema) {
			s.Tables[1].Fields[0].Type = TypeString
		}, KindInvalidForeignKey},
		{"negative cardinality", func(s *Schema) {
			s.Tables[1].Fields[0].References.Cardinality = -1
		}, KindInvalidForeignKey},
		{"probability on non-nullable", func(s *Schema) {
			s.Tables[1].Fields[1].NullProbability = 0.5
		}, KindInvalidProbability},
		{"probability above one", func(s *Schema) {
			s.Tables[0].Fields[3].NullProbability = 1.5
		}, KindInvalidProbability},
		{"negative length", func(s *Schema) {
			s.Tables[0].Fields[1].Length = intPtr(-1)
		}, KindInvalidLength},
		{"integer length zero", func(s *Schema) {
			s.Tables[0].Fields[0].Length = intPtr(0)
		}, KindInvalidLength},
		{"decimal length zero", func(s *Schema) {
			s.Tables[1].Fields[1].Length = intPtr(0)
		}, KindInvalidLength},
		{"domain longer than length", func(s *Schema) {
			s.Tables[0].Fields[2].Length = intPtr(3)
		}, KindInvalidLength},
		{"empty domain", func(s *Schema) {
			s.Tables[0].Fields[2].Domain = []any{}
			s.Tables[0].Fields[2].Weights = nil
		}, KindEmptyDomain},
		{"domain value of wrong type", func(s *Schema) {
			s.Tables[1].Fields[1].Domain = []any{"1.5", "lots"}
		}, KindInvalidDomain},
		{"repeated domain value", func(s *Schema) {
			s.Tables[0].Fields[2].Domain = []any{"free", "free"}
		}, KindInvalidDomain},
		{"weights do not match domain", func(s *Schema) {
			s.Tables[0].Fields[2].Weights = []float64{1}
		}, KindInvalidDomain},
		{"negative weight", func(s *Schema) {
			s.Tables[0].Fields[2].Weights = []float64{1, -1}
		}, KindInvalidDomain},
		{"unknown rule", func(s *Schema) {
			s.Tables[0].Fields[1].Rule = "favourite_colour"
		}, KindUnknownRule},
		{"unknown type", func(s *Schema) {
			s.Tables[1].Fields[1].Type = "money"
		}, KindInvalidType},
		{"nullable primary key", func(s *Schema) {
			s.Tables[0].Fields[0].Nullable = true
		}, KindInvalidPrimaryKey},
		{"date primary key without rule", func(s *Schema) {
			s.Tables[0].Fields[0].Type = TypeDate
			s.Tables[1].Fields[0].Type = TypeDate
		}, KindInvalidPrimaryKey},
		{"parent without rows", func(s *Schema) {
			s.Tables[0].Rows = 0
		}, KindEmptyParent},
		{"table without fields", func(s *Schema) {
			s.Tables = append(s.Tables, Table{Name: "empty"})
		}, KindInvalidDefinition},
		{"min above max", func(s *Schema) {
			lo, hi := 10.0, 1.0
			s.Tables[1].Fields[1].Min, s.Tables[1].Fields[1].Max = &lo, &hi
		}, KindInvalidDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchema()
			tt.mutate(s)
			err := Validate(s, knownRules)
			var schemaErr *Error
			require.ErrorAs(t, err, &schemaErr)
			assert.True(t, schemaErr.Has(tt.kind), "want %s, got %v", tt.kind, schemaErr.Violations)
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	s := validSchema()
	s.Tables[0].Fields = append(s.Tables[0].Fields, Field{Name: "name", Type: TypeString})
	s.Tables[0].Fields[1].PrimaryKey = true
	s.Tables[1].Fields[0].References.Table = "people"
	s.Tables[1].Fields[1].NullProbability = 0.3

	err := Validate(s, knownRules)
	var schemaErr *Error
	require.ErrorAs(t, err, &schemaErr)
	for _, kind := range []ViolationKind{KindDuplicateField, KindMultiplePrimaryKeys, KindInvalidForeignKey, KindInvalidProbability} {
		assert.True(t, schemaErr.Has(kind), kind.String())
	}
	assert.Contains(t, err.Error(), "problems")
	assert.Contains(t, err.Error(), "posts.author_id")
}

func TestValidateNullableReferenceTarget(t *testing.T) {
	s := validSchema()
	code := Field{Name: "code", Type: TypeString, Unique: true, Nullable: true, NullProbability: 1}
	s.Tables[0].Fields = append(s.Tables[0].Fields, code)
	s.Tables[1].Fields[0].Type = TypeString
	s.Tables[1].Fields[0].References = &Reference{Table: "users", Field: "code"}

	err := Validate(s, knownRules)
	var schemaErr *Error
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, KindInvalidForeignKey, schemaErr.Violations[0].Kind)
	assert.Contains(t, schemaErr.Violations[0].Message, "users.code is nullable")

	s.Tables[0].Fields[4].Nullable = false
	s.Tables[0].Fields[4].NullProbability = 0
	assert.NoError(t, Validate(s, knownRules))
}

func TestValidateStringLengthZero(t *testing.T) {
	s := validSchema()
	s.Tables[0].Fields[1].Length = intPtr(0)
	assert.NoError(t, Validate(s, knownRules))
}

func TestValidateAlwaysNullReferenceToEmptyParent(t *testing.T) {
	s := validSchema()
	s.Tables[0].Rows = 0
	s.Tables[1].Fields[0].Nullable = true
	s.Tables[1].Fields[0].NullProbability = 1
	assert.NoError(t, Validate(s, knownRules))
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		typ  DataType
		in   any
		want any
	}{
		{TypeString, 12, "12"},
		{TypeString, 1.5, "1.5"},
		{TypeInteger, 3.0, int64(3)},
		{TypeInteger, "42", int64(42)},
		{TypeDecimal, 2, 2.0},
		{TypeDecimal, "0.25", 0.25},
		{TypeBoolean, "true", true},
		{TypeBoolean, 0, false},
		{TypeString, nil, nil},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.typ, tt.in)
		require.NoError(t, err, "%s %v", tt.typ, tt.in)
		assert.Equal(t, tt.want, got, "%s %v", tt.typ, tt.in)
	}

	d, err := Coerce(TypeDate, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []struct {
		typ DataType
		in  any
	}{
		{TypeInteger, 1.5},
		{TypeInteger, "x"},
		{TypeBoolean, 2},
		{TypeDate, "yesterday"},
		{TypeDecimal, "n/a"},
	} {
		_, err := Coerce(bad.typ, bad.in)
		assert.Error(t, err, "%s %v", bad.typ, bad.in)
	}
}

func TestTextLength(t *testing.T) {
	assert.Equal(t, 5, TextLength("héllo"))
	assert.Equal(t, 4, TextLength(int64(-123)))
	assert.Equal(t, 3, TextLength(2.5))
}

func TestApplyCounts(t *testing.T) {
	s := validSchema()
	s.Tables[0].Rows = 0
	s.ApplyCounts(50, map[string]int{"posts": 7})
	assert.Equal(t, 50, s.Tables[0].Rows)
	assert.Equal(t, 7, s.Tables[1].Rows)

	s = &Schema{Tables: []Table{{Name: "OrderItems"}}}
	s.ApplyCounts(1, map[string]int{"orderitems": 9})
	assert.Equal(t, 9, s.Tables[0].Rows)
}

func TestSchemaHelpers(t *testing.T) {
	s := validSchema()
	assert.Equal(t, []string{"users", "posts"}, s.TableNames())
	assert.Equal(t, []string{"users"}, s.Table("posts").Dependencies())
	assert.True(t, s.Referenced("users", "id"))
	assert.False(t, s.Referenced("users", "name"))
	assert.Equal(t, []Edge{{Child: "posts", ChildField: "author_id", Parent: "users", ParentField: "id"}}, s.Edges())
	assert.Equal(t, "id", s.Table("users").PrimaryKey().Name)
	assert.Nil(t, s.Table("posts").PrimaryKey())
	assert.Equal(t, 2, s.Table("users").FieldIndex("tier"))
}
