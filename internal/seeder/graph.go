package seeder

import (
	"github.com/Lumos-Labs-HQ/tablefaker/internal/schema"
)

// DependencyGraph orders tables so that every table comes after the tables
// it references.
type DependencyGraph struct {
	tables []string
	deps   map[string][]string
	order  []string
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps: make(map[string][]string),
	}
}

// AddTable declares a table and the tables it depends on. Declaration
// order breaks ties between tables that are ready at the same time.
func (g *DependencyGraph) AddTable(name string, dependencies ...string) {
	if _, ok := g.deps[name]; !ok {
		g.tables = append(g.tables, name)
	}
	g.deps[name] = append(g.deps[name], dependencies...)
}

// BuildInsertionOrder runs Kahn's algorithm, always taking the earliest
// declared ready table. A table that references itself is a cycle.
// Dependencies on undeclared tables are ignored.
func (g *DependencyGraph) BuildInsertionOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.tables))
	dependents := make(map[string][]string, len(g.tables))
	for _, name := range g.tables {
		seen := make(map[string]bool)
		for _, dep := range g.deps[name] {
			if _, declared := g.deps[dep]; !declared || seen[dep] {
				continue
			}
			seen[dep] = true
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	done := make(map[string]bool, len(g.tables))
	order := make([]string, 0, len(g.tables))
	for len(order) < len(g.tables) {
		next := ""
		for _, name := range g.tables {
			if !done[name] && inDegree[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			return nil, &CycleDetectedError{Tables: g.cycleMembers(done, dependents)}
		}
		done[next] = true
		order = append(order, next)
		for _, child := range dependents[next] {
			inDegree[child]--
		}
	}

	g.order = order
	return order, nil
}

// cycleMembers trims tables that merely hang off a cycle: any unresolved
// table that no other unresolved table depends on is peeled away until only
// tables on a cycle remain.
func (g *DependencyGraph) cycleMembers(done map[string]bool, dependents map[string][]string) []string {
	remaining := make(map[string]bool)
	for _, name := range g.tables {
		if !done[name] {
			remaining[name] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, name := range g.tables {
			if !remaining[name] {
				continue
			}
			needed := false
			for _, child := range dependents[name] {
				if remaining[child] {
					needed = true
					break
				}
			}
			if !needed {
				delete(remaining, name)
				changed = true
			}
		}
	}

	var members []string
	for _, name := range g.tables {
		if remaining[name] {
			members = append(members, name)
		}
	}
	return members
}

func (g *DependencyGraph) GetOrder() []string {
	return g.order
}

// ResolveOrder returns the generation order of the schema's tables.
func ResolveOrder(s *schema.Schema) ([]string, error) {
	g := NewDependencyGraph()
	for i := range s.Tables {
		g.AddTable(s.Tables[i].Name, s.Tables[i].Dependencies()...)
	}
	return g.BuildInsertionOrder()
}
