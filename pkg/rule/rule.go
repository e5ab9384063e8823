package rule

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/cond"
	"github.com/nilp0inter/monana/pkg/template"
)

// Rule pairs a condition with a destination template and an action.
//
// Conditions are boolean expressions over the media context:
//   - type == "image" && space.city == "Madrid"
//   - meta.FNumber <= 2.8
//   - media.duration > 60 || source.ext == "mov"
//   - !meta.GPSLatitude
//   - default
//
// Templates substitute "{namespace.field}" placeholders:
//   - /Photos/{time.yyyy}/{time.mm}/{source.name}.{source.ext}
//   - /Photos/Travel/{space.country}/{space.city}/{source.original}
type Rule struct {
	condition *cond.Expr
	template  *template.Template

	// Name optionally identifies the rule in reports.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// Condition selects the files this rule applies to. Empty or "default"
	// matches everything.
	Condition string `json:"condition,omitempty" jsonschema:"title=Condition"`
	// Template renders the destination path.
	Template string `json:"template" jsonschema:"title=Template"`
	// Action is a builtin action, a configured action name, or "cmd:<command line>".
	Action string `json:"action" jsonschema:"title=Action"`
}

// New creates and compiles a rule.
func New(name, condition, tmpl, action string) (*Rule, error) {
	r := &Rule{
		Name:      name,
		Condition: condition,
		Template:  tmpl,
		Action:    action,
	}
	if err := r.Compile(); err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew creates a new rule and panics if there's an error.
func MustNew(name, condition, tmpl, action string) *Rule {
	r, err := New(name, condition, tmpl, action)
	if err != nil {
		panic(err)
	}

	return r
}

// Compile compiles the rule's condition and template.
func (r *Rule) Compile() error {
	if r.condition == nil {
		c, err := cond.Compile(r.Condition)
		if err != nil {
			return fmt.Errorf("condition %q: %w", r.Condition, err)
		}

		r.condition = c
	}

	if r.template == nil {
		t, err := template.Parse(r.Template)
		if err != nil {
			return fmt.Errorf("template %q: %w", r.Template, err)
		}

		r.template = t
	}

	if r.Action == "" {
		return errors.New("action is required")
	}

	return nil
}

// Match evaluates the rule's condition against l.
func (r *Rule) Match(l attr.Lookup) (bool, error) {
	return r.mustCondition().Eval(l)
}

// IsDefault reports whether the rule matches unconditionally.
func (r *Rule) IsDefault() bool {
	return r.mustCondition().IsDefault()
}

// GetTemplate returns the compiled destination template.
func (r *Rule) GetTemplate() *template.Template {
	if r.template == nil {
		panic(errors.New("rule not compiled"))
	}

	return r.template
}

func (r *Rule) mustCondition() *cond.Expr {
	if r.condition == nil {
		panic(errors.New("rule not compiled"))
	}

	return r.condition
}

// DisplayName returns the rule's name, or its position when unnamed.
func (r *Rule) DisplayName(index int) string {
	if r.Name != "" {
		return r.Name
	}

	return "#" + strconv.Itoa(index)
}

func (r *Rule) String() string {
	c := r.Condition
	if c == "" {
		c = cond.Default
	}

	return fmt.Sprintf("%s -> %s (%s)", c, r.Template, r.Action)
}
