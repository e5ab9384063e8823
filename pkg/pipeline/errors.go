package pipeline

import (
	"context"
	"errors"

	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/cond"
	"github.com/nilp0inter/monana/pkg/mediactx"
	"github.com/nilp0inter/monana/pkg/template"
)

// ErrConfiguration is returned for invalid rulesets, rules, actions and
// ruleset graphs. It is fatal at startup.
var ErrConfiguration = errors.New("configuration")

// Error kinds reported in outcomes.
const (
	KindMetadata      = "metadata"
	KindEvaluation    = "evaluation"
	KindTemplate      = "template"
	KindCollision     = "collision"
	KindAction        = "action"
	KindConfiguration = "configuration"
	KindCanceled      = "canceled"
	KindUnknown       = "unknown"
)

// Kind classifies err into one of the error kinds. It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, mediactx.ErrMetadata):
		return KindMetadata
	case errors.Is(err, cond.ErrEvaluation):
		return KindEvaluation
	case errors.Is(err, template.ErrCollisionResolutionExhausted):
		return KindCollision
	case errors.Is(err, template.ErrTemplate):
		return KindTemplate
	case errors.Is(err, action.ErrAction):
		return KindAction
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}

	return KindUnknown
}
