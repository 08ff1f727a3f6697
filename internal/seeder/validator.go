package seeder

import "time"

// timeKey stands in for a time.Time in uniqueness sets so that equal
// instants compare equal regardless of location data.
type timeKey int64

func valueKey(v any) any {
	if t, ok := v.(time.Time); ok {
		return timeKey(t.UnixNano())
	}
	return v
}

// constraintValidator enforces uniqueness incrementally as rows are
// accepted. A colliding field is regenerated up to maxRetries times.
type constraintValidator struct {
	plan       *tablePlan
	seen       map[int]map[any]struct{}
	maxRetries int
	observer   Observer
}

func newConstraintValidator(plan *tablePlan, maxRetries int, observer Observer) *constraintValidator {
	v := &constraintValidator{
		plan:       plan,
		seen:       make(map[int]map[any]struct{}, len(plan.unique)),
		maxRetries: maxRetries,
		observer:   observer,
	}
	for _, i := range plan.unique {
		v.seen[i] = make(map[any]struct{})
	}
	return v
}

type regenFunc func(d *draft, fp *fieldPlan) (any, error)

// admit checks the unique fields of d, regenerating colliding values, and
// records the accepted values. Nulls are exempt.
func (v *constraintValidator) admit(d *draft, regen regenFunc) error {
	table := v.plan.table.Name
	for _, i := range v.plan.unique {
		val := d.values[i]
		if val == nil {
			continue
		}
		fp := &v.plan.fields[i]
		seen := v.seen[i]
		key := valueKey(val)
		for attempts := 0; ; attempts++ {
			if _, dup := seen[key]; !dup {
				break
			}
			if attempts == v.maxRetries {
				return &TableError{
					Table: table,
					Field: fp.field.Name,
					Row:   d.index,
					Err: &UniquenessExhaustedError{
						Table:    table,
						Field:    fp.field.Name,
						Row:      d.index,
						Attempts: attempts,
					},
				}
			}
			v.observer.UniquenessRetry(table, fp.field.Name)
			next, err := regen(d, fp)
			if err != nil {
				return &TableError{Table: table, Field: fp.field.Name, Row: d.index, Err: err}
			}
			d.values[i] = next
			key = valueKey(next)
		}
		seen[key] = struct{}{}
	}
	return nil
}
