package seeder

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/provider"
	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
)

type fieldKind int

const (
	kindRule fieldKind = iota
	kindDomain
	kindForeign
	kindSurrogate
)

// fieldPlan is a field definition resolved against the registry and the
// run options.
type fieldPlan struct {
	pos      int
	field    *schema.Field
	kind     fieldKind
	rule     string
	gen      provider.Func
	params   provider.Params
	domain   []any
	choice   choice
	nullP    float64
	length   int
	balance  *Balance
	unique   bool
	register bool
}

type tablePlan struct {
	table  *schema.Table
	fields []fieldPlan
	// unique and keys hold field positions.
	unique   []int
	keys     []int
	keyNames []string
}

func (e *Engine) compile(s *schema.Schema, t *schema.Table) (*tablePlan, error) {
	plan := &tablePlan{table: t, fields: make([]fieldPlan, len(t.Fields))}
	for i := range t.Fields {
		f := &t.Fields[i]
		fp := fieldPlan{
			pos:      i,
			field:    f,
			length:   -1,
			unique:   f.IsKey(),
			register: f.PrimaryKey || (f.Unique && s.Referenced(t.Name, f.Name)),
		}
		if f.Nullable {
			fp.nullP = f.NullProbability
		}
		if f.Length != nil {
			fp.length = *f.Length
		}

		if err := e.resolveField(t, f, &fp); err != nil {
			return nil, &TableError{Table: t.Name, Field: f.Name, Row: -1, Err: err}
		}

		plan.fields[i] = fp
		if fp.unique {
			plan.unique = append(plan.unique, i)
		}
		if fp.register {
			plan.keys = append(plan.keys, i)
			plan.keyNames = append(plan.keyNames, f.Name)
		}
	}
	return plan, nil
}

func (e *Engine) resolveField(t *schema.Table, f *schema.Field, fp *fieldPlan) error {
	switch {
	case f.References != nil:
		fp.kind = kindForeign
		k := f.References.Cardinality
		if hint, ok := e.cardinality[t.Name][f.Name]; ok {
			k = hint
		}
		if k > 0 {
			fp.balance = NewBalance(k)
		}
		return nil

	case f.Domain != nil:
		if len(f.Domain) == 0 {
			return errors.New("domain is empty")
		}
		fp.kind = kindDomain
		fp.domain = make([]any, len(f.Domain))
		for i, raw := range f.Domain {
			v, err := schema.Coerce(f.Type, raw)
			if err != nil {
				return fmt.Errorf("domain value %v: %w", raw, err)
			}
			fp.domain[i] = v
		}
		fp.choice = newChoice(len(fp.domain), f.Weights)
		return nil

	case f.Rule == "" && f.PrimaryKey:
		switch f.Type {
		case schema.TypeInteger, schema.TypeString, schema.TypeDecimal:
			fp.kind = kindSurrogate
			return nil
		}
		return fmt.Errorf("no surrogate key exists for type %s", f.Type)
	}

	fp.kind = kindRule
	fp.rule = f.Rule
	if fp.rule == "" {
		fp.rule = string(f.Type)
	}
	gen, ok := e.registry.Lookup(fp.rule)
	if !ok {
		return &provider.UnknownRuleError{Rule: fp.rule}
	}
	fp.gen = gen
	fp.params = ruleParams(f)
	return nil
}

// ruleParams derives the provider parameters of a field. Explicit params
// take precedence over the derived ones.
func ruleParams(f *schema.Field) provider.Params {
	p := provider.Params{
		provider.ParamType:  string(f.Type),
		provider.ParamField: f.Name,
	}
	if f.Length != nil {
		p[provider.ParamLength] = *f.Length
	}
	if f.Min != nil {
		p[provider.ParamMin] = *f.Min
	}
	if f.Max != nil {
		p[provider.ParamMax] = *f.Max
	}
	for k, v := range f.Params {
		p[k] = v
	}
	return p
}

// draft is a row under construction. Its source is consumed first by the
// independent fields and then, in row order, by foreign key sampling and
// uniqueness retries.
type draft struct {
	index  int
	rng    *rand.Rand
	values []any
	// foreign holds the positions of non-null foreign keys still to sample.
	foreign []int
}

type rowGenerator struct {
	plan    *tablePlan
	sources sourceFactory
	pools   *KeyPools
}

func (g *rowGenerator) fail(fp *fieldPlan, index int, err error) error {
	return &TableError{Table: g.plan.table.Name, Field: fp.field.Name, Row: index, Err: err}
}

// draft fills every field that does not depend on other tables. It touches
// no shared state and may run concurrently for different rows.
func (g *rowGenerator) draft(index int) (*draft, error) {
	d := &draft{
		index:  index,
		rng:    g.sources.row(index),
		values: make([]any, len(g.plan.fields)),
	}
	for i := range g.plan.fields {
		fp := &g.plan.fields[i]
		if fp.nullP > 0 && d.rng.Float64() < fp.nullP {
			continue
		}
		if fp.kind == kindForeign {
			d.foreign = append(d.foreign, i)
			continue
		}
		v, err := g.value(d, fp)
		if err != nil {
			return nil, g.fail(fp, index, err)
		}
		d.values[i] = v
	}
	return d, nil
}

// resolve samples the pending foreign keys. It must run in row order.
func (g *rowGenerator) resolve(d *draft) error {
	for _, i := range d.foreign {
		fp := &g.plan.fields[i]
		v, err := g.reference(d, fp)
		if err != nil {
			return g.fail(fp, d.index, err)
		}
		d.values[i] = v
	}
	d.foreign = nil
	return nil
}

// regenerate produces a fresh non-null value for one field.
func (g *rowGenerator) regenerate(d *draft, fp *fieldPlan) (any, error) {
	if fp.kind == kindForeign {
		return g.reference(d, fp)
	}
	return g.value(d, fp)
}

func (g *rowGenerator) reference(d *draft, fp *fieldPlan) (any, error) {
	ref := fp.field.References
	return g.pools.Sample(d.rng, ref.Table, ref.Field, fp.balance)
}

func (g *rowGenerator) value(d *draft, fp *fieldPlan) (any, error) {
	var v any
	switch fp.kind {
	case kindDomain:
		// Domain values are validated against length up front.
		return fp.domain[fp.choice.index(d.rng)], nil
	case kindSurrogate:
		v = surrogate(fp.field, d.index)
	case kindRule:
		raw, err := fp.gen(d.rng, fp.params)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", fp.rule, err)
		}
		v, err = schema.Coerce(fp.field.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", fp.rule, err)
		}
		if v == nil {
			return nil, fmt.Errorf("rule %q returned no value", fp.rule)
		}
	default:
		return nil, fmt.Errorf("field kind %d has no local value", fp.kind)
	}
	if fp.length >= 0 {
		v = truncate(v, fp.length)
	}
	return v, nil
}

// surrogate is the key of a primary key field without a rule: the 1-based
// row ordinal, zero-padded to the field length for strings.
func surrogate(f *schema.Field, index int) any {
	n := int64(index + 1)
	switch f.Type {
	case schema.TypeDecimal:
		return float64(n)
	case schema.TypeString:
		if f.Length != nil && *f.Length > 0 {
			return fmt.Sprintf("%0*d", *f.Length, n)
		}
		return strconv.FormatInt(n, 10)
	}
	return n
}

// truncate cuts the text form of v to n characters. Integers and decimals
// keep their leading digits. Other types are returned unchanged.
func truncate(v any, n int) any {
	switch x := v.(type) {
	case string:
		if utf8.RuneCountInString(x) <= n {
			return x
		}
		return string([]rune(x)[:n])
	case int64:
		s := strconv.FormatInt(x, 10)
		if len(s) <= n {
			return x
		}
		i, err := strconv.ParseInt(s[:n], 10, 64)
		if err != nil {
			return int64(0)
		}
		return i
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if len(s) <= n {
			return x
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(s[:n], "."), 64)
		if err != nil {
			return float64(0)
		}
		return f
	}
	return v
}
