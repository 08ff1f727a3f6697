package seeder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsertionOrder(t *testing.T) {
	tests := []struct {
		name   string
		tables [][]string // name followed by dependencies
		want   []string
	}{
		{
			name:   "independent tables keep declaration order",
			tables: [][]string{{"c"}, {"a"}, {"b"}},
			want:   []string{"c", "a", "b"},
		},
		{
			name:   "child declared before parent",
			tables: [][]string{{"orders", "users"}, {"users"}},
			want:   []string{"users", "orders"},
		},
		{
			name:   "diamond",
			tables: [][]string{{"d", "b", "c"}, {"c", "a"}, {"b", "a"}, {"a"}},
			want:   []string{"a", "c", "b", "d"},
		},
		{
			name:   "unknown dependency is ignored",
			tables: [][]string{{"a", "missing"}},
			want:   []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewDependencyGraph()
			for _, tbl := range tt.tables {
				g.AddTable(tbl[0], tbl[1:]...)
			}
			order, err := g.BuildInsertionOrder()
			require.NoError(t, err)
			assert.Equal(t, tt.want, order)
			assert.Equal(t, tt.want, g.GetOrder())
		})
	}
}

func TestBuildInsertionOrderParentsFirst(t *testing.T) {
	g := NewDependencyGraph()
	deps := map[string][]string{
		"line_items": {"orders", "products"},
		"orders":     {"users", "addresses"},
		"addresses":  {"users"},
		"products":   {"vendors"},
		"vendors":    nil,
		"users":      nil,
	}
	for _, name := range []string{"line_items", "orders", "addresses", "products", "vendors", "users"} {
		g.AddTable(name, deps[name]...)
	}

	order, err := g.BuildInsertionOrder()
	require.NoError(t, err)
	require.Len(t, order, len(deps))

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	for child, parents := range deps {
		for _, parent := range parents {
			assert.Less(t, pos[parent], pos[child], "%s must come before %s", parent, child)
		}
	}
}

func TestBuildInsertionOrderCycles(t *testing.T) {
	tests := []struct {
		name   string
		tables [][]string
		want   []string
	}{
		{
			name:   "two tables",
			tables: [][]string{{"TableA", "TableB"}, {"TableB", "TableA"}},
			want:   []string{"TableA", "TableB"},
		},
		{
			name:   "self reference",
			tables: [][]string{{"employees", "employees"}},
			want:   []string{"employees"},
		},
		{
			name:   "tables hanging off a cycle are not named",
			tables: [][]string{{"root"}, {"x", "y", "root"}, {"y", "x"}, {"leaf", "x"}},
			want:   []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewDependencyGraph()
			for _, tbl := range tt.tables {
				g.AddTable(tbl[0], tbl[1:]...)
			}
			_, err := g.BuildInsertionOrder()
			var cycle *CycleDetectedError
			require.ErrorAs(t, err, &cycle)
			assert.Equal(t, tt.want, cycle.Tables)
		})
	}
}
