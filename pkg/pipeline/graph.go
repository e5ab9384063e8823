package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Graph is a validated, acyclic set of rulesets.
type Graph struct {
	rulesets   map[string]*Ruleset
	downstream map[string][]string
	upstream   map[string]string
	order      []string
}

// NewGraph validates rulesets: names must be unique, ruleset inputs must
// reference known rulesets, and references must not form a cycle.
func NewGraph(rulesets []*Ruleset) (*Graph, error) {
	g := &Graph{
		rulesets:   map[string]*Ruleset{},
		downstream: map[string][]string{},
		upstream:   map[string]string{},
	}

	for _, rs := range rulesets {
		if _, ok := g.rulesets[rs.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate ruleset %q", ErrConfiguration, rs.Name)
		}

		g.rulesets[rs.Name] = rs
	}

	if err := checkSharedInputs(rulesets); err != nil {
		return nil, err
	}

	indegree := map[string]int{}

	for _, name := range slices.Sorted(maps.Keys(g.rulesets)) {
		rs := g.rulesets[name]
		indegree[name] += 0

		if rs.Input.IsRoot() {
			continue
		}

		up := rs.Input.Value
		if _, ok := g.rulesets[up]; !ok {
			return nil, fmt.Errorf("%w: ruleset %q: input references unknown ruleset %q", ErrConfiguration, name, up)
		}

		g.upstream[name] = up
		g.downstream[up] = append(g.downstream[up], name)
		indegree[name]++
	}

	// Kahn's algorithm, always taking the smallest ready name.
	var ready []string

	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}

	for len(ready) > 0 {
		slices.Sort(ready)

		name := ready[0]
		ready = ready[1:]

		g.order = append(g.order, name)

		for _, next := range g.downstream[name] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(g.order) != len(g.rulesets) {
		var cycle []string

		for _, name := range slices.Sorted(maps.Keys(indegree)) {
			if indegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}

		return nil, fmt.Errorf("%w: ruleset cycle: %s", ErrConfiguration, strings.Join(cycle, ", "))
	}

	rank := map[string]int{}
	for i, name := range g.order {
		rank[name] = i
	}

	for up := range g.downstream {
		slices.SortFunc(g.downstream[up], func(a, b string) int {
			return rank[a] - rank[b]
		})
	}

	return g, nil
}

// Order returns ruleset names in topological order, ties broken by name.
func (g *Graph) Order() []string {
	return slices.Clone(g.order)
}

// Ruleset returns the named ruleset, or nil.
func (g *Graph) Ruleset(name string) *Ruleset {
	return g.rulesets[name]
}

// Downstream returns the rulesets consuming name's outputs, in
// topological order.
func (g *Graph) Downstream(name string) []*Ruleset {
	out := make([]*Ruleset, 0, len(g.downstream[name]))
	for _, n := range g.downstream[name] {
		out = append(out, g.rulesets[n])
	}

	return out
}

// Roots groups the root rulesets by input, in topological order inside
// each group. Groups are ordered by their first ruleset.
func (g *Graph) Roots() [][]*Ruleset {
	var (
		groups [][]*Ruleset
		index  = map[Input]int{}
	)

	for _, name := range g.order {
		rs := g.rulesets[name]
		if !rs.Input.IsRoot() {
			continue
		}

		i, ok := index[rs.Input]
		if !ok {
			i = len(groups)
			index[rs.Input] = i
			groups = append(groups, nil)
		}

		groups[i] = append(groups[i], rs)
	}

	return groups
}

// Select returns the set of named rulesets together with every ruleset
// they consume from and every ruleset consuming from them. An empty
// names list selects everything.
func (g *Graph) Select(names ...string) (map[string]bool, error) {
	selected := map[string]bool{}

	if len(names) == 0 {
		for name := range g.rulesets {
			selected[name] = true
		}

		return selected, nil
	}

	var down func(string)

	down = func(name string) {
		selected[name] = true
		for _, n := range g.downstream[name] {
			down(n)
		}
	}

	for _, name := range names {
		if _, ok := g.rulesets[name]; !ok {
			return nil, fmt.Errorf("%w: unknown ruleset %q", ErrConfiguration, name)
		}

		down(name)

		for up, ok := g.upstream[name]; ok; up, ok = g.upstream[up] {
			selected[up] = true
		}
	}

	return selected, nil
}

// checkSharedInputs requires rulesets reading the same root input to agree
// on how files are discovered.
func checkSharedInputs(rulesets []*Ruleset) error {
	first := map[Input]*Ruleset{}

	for _, rs := range rulesets {
		if !rs.Input.IsRoot() {
			continue
		}

		other, ok := first[rs.Input]
		if !ok {
			first[rs.Input] = rs
			continue
		}

		a, b := other.Source, rs.Source
		if a.Recursive != b.Recursive || a.Hidden != b.Hidden ||
			!slices.Equal(a.Include, b.Include) || !slices.Equal(a.Exclude, b.Exclude) ||
			other.Filter.String() != rs.Filter.String() {
			return fmt.Errorf("%w: rulesets %q and %q share input %q but differ in recursive, hidden, include, exclude or filter",
				ErrConfiguration, other.Name, rs.Name, rs.Input)
		}
	}

	return nil
}
