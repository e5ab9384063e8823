package pipeline

import (
	"fmt"

	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/expr"
	"github.com/nilp0inter/monana/pkg/rule"
	"github.com/nilp0inter/monana/pkg/source"
)

// Ruleset is a named pipeline stage: an input and an ordered rule list.
type Ruleset struct {
	// Filter applies to watch inputs only.
	Filter  *expr.Filter
	Name    string
	Input   Input
	Rules   []*rule.Rule
	actions []*action.Action
	Source  source.Options
}

// NewRuleset validates and compiles a ruleset, resolving every rule's
// action in reg.
func NewRuleset(name string, input Input, rules []*rule.Rule, reg *action.Registry, opts source.Options) (*Ruleset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: ruleset name is required", ErrConfiguration)
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: ruleset %q: no rules", ErrConfiguration, name)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ruleset %q: %w", ErrConfiguration, name, err)
	}

	rs := &Ruleset{Name: name, Input: input, Rules: rules, Source: opts}

	for i, r := range rules {
		if err := r.Compile(); err != nil {
			return nil, fmt.Errorf("%w: ruleset %q: rule %s: %w", ErrConfiguration, name, r.DisplayName(i), err)
		}

		a, err := reg.Resolve(r.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: ruleset %q: rule %s: %w", ErrConfiguration, name, r.DisplayName(i), err)
		}

		rs.actions = append(rs.actions, a)
	}

	return rs, nil
}

// SetFilter compiles a watch event filter. An empty src clears it.
func (rs *Ruleset) SetFilter(src string) error {
	if src == "" {
		rs.Filter = nil
		return nil
	}

	if rs.Input.Kind != InputWatch {
		return fmt.Errorf("%w: ruleset %q: filter requires a watch input", ErrConfiguration, rs.Name)
	}

	f, err := expr.NewFilter(src)
	if err != nil {
		return fmt.Errorf("%w: ruleset %q: %w", ErrConfiguration, rs.Name, err)
	}

	rs.Filter = f

	return nil
}

// Action returns the resolved action of rule i.
func (rs *Ruleset) Action(i int) *action.Action {
	return rs.actions[i]
}

// Match returns the index of the first rule whose condition holds for l,
// or -1. Rules after the match are never evaluated. A rule that fails to
// evaluate does not match; onErr, if set, receives its index and error.
func (rs *Ruleset) Match(l attr.Lookup, onErr func(i int, err error)) int {
	for i, r := range rs.Rules {
		ok, err := r.Match(l)
		if err != nil {
			if onErr != nil {
				onErr(i, err)
			}

			continue
		}

		if ok {
			return i
		}
	}

	return -1
}
