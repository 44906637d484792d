package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/stages"
)

// ErrInvalidDirective is returned by Directive.Validate.
var ErrInvalidDirective = errors.New("invalid scenario directive")

// #region directive-kinds

// DirectiveKind selects a scenario directive template.
type DirectiveKind string

const (
	DirectivePhaseReplay       DirectiveKind = "phase_replay"
	DirectiveScriptedObjection DirectiveKind = "scripted_objection"
	DirectiveSkillGap          DirectiveKind = "skill_gap"
)

// #endregion directive-kinds

// #region directive

// Directive is an operator-activated override that steers the counterpart
// for a limited number of turns.
type Directive struct {
	Kind           DirectiveKind      `json:"kind"`
	Phase          stages.Stage       `json:"phase,omitempty"`    // phase_replay
	Category       objection.Category `json:"category,omitempty"` // scripted_objection
	Line           string             `json:"line,omitempty"`     // scripted_objection, optional exact wording
	AtTurn         int                `json:"at_turn,omitempty"`  // scripted_objection, 1-based operator turn
	Skill          string             `json:"skill,omitempty"`    // skill_gap
	TurnsRemaining int                `json:"turns_remaining"`
}

// defaultLifetime applies when a directive is activated without one.
const defaultLifetime = 5

// #endregion directive

// #region directive-templates

type directiveTemplate struct {
	heading string
	body    string
}

var directiveTemplates = map[DirectiveKind]directiveTemplate{
	DirectivePhaseReplay: {
		heading: "Phase replay",
		body: "The rep is practising the %s phase. Keep the conversation there: " +
			"answer in a way that gives them another chance at it rather than moving on.",
	},
	DirectiveScriptedObjection: {
		heading: "Scripted objection",
		body:    "Raise a %s objection this turn, clearly and in your own voice.",
	},
	DirectiveSkillGap: {
		heading: "Skill focus",
		body: "The rep is working on %s. Create natural openings that test it, " +
			"and only warm up when they use it well.",
	},
}

// #endregion directive-templates

// #region validate

// Validate checks the kind-specific fields and fills in the default lifetime.
func (d *Directive) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: missing", ErrInvalidDirective)
	}
	switch d.Kind {
	case DirectivePhaseReplay:
		if !d.Phase.Valid() {
			return fmt.Errorf("%w: unknown phase %q", ErrInvalidDirective, d.Phase)
		}
	case DirectiveScriptedObjection:
		if !d.Category.Valid() {
			return fmt.Errorf("%w: unknown objection category %q", ErrInvalidDirective, d.Category)
		}
		if d.AtTurn < 1 {
			d.AtTurn = 1
		}
	case DirectiveSkillGap:
		if strings.TrimSpace(d.Skill) == "" {
			return fmt.Errorf("%w: skill is required", ErrInvalidDirective)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDirective, d.Kind)
	}
	if d.TurnsRemaining <= 0 {
		d.TurnsRemaining = defaultLifetime
	}
	return nil
}

// #endregion validate

// #region render

// Render returns the instruction block for the directive on this turn, or
// "" when nothing applies. A scripted objection only renders on the turn it
// fires.
func (d *Directive) Render(turnCount int) string {
	if d == nil {
		return ""
	}
	tmpl, ok := directiveTemplates[d.Kind]
	if !ok {
		return ""
	}
	var body string
	switch d.Kind {
	case DirectivePhaseReplay:
		body = fmt.Sprintf(tmpl.body, d.Phase)
	case DirectiveScriptedObjection:
		if turnCount < d.AtTurn {
			return ""
		}
		body = fmt.Sprintf(tmpl.body, d.Category)
		if line := strings.TrimSpace(d.Line); line != "" {
			body += fmt.Sprintf(" Use this wording or something very close to it: %q", line)
		}
	case DirectiveSkillGap:
		body = fmt.Sprintf(tmpl.body, d.Skill)
	}
	return tmpl.heading + ": " + body
}

// #endregion render

// #region gate-override

// applyDirective lets a scripted objection take over the gate. Before AtTurn
// the gate is held closed; at AtTurn it is forced open with the scripted
// category. Reports whether the directive fired this turn.
func applyDirective(d *Directive, turnCount int, gd *gate.GateDecision) bool {
	if d == nil || d.Kind != DirectiveScriptedObjection {
		return false
	}
	if turnCount < d.AtTurn {
		gd.Surface = false
		gd.Category = objection.CategoryNone
		gd.Reason = fmt.Sprintf("held for scripted objection at turn %d", d.AtTurn)
		return false
	}
	gd.Surface = true
	gd.Category = d.Category
	gd.Reason = "scripted objection"
	return true
}

// advanceDirective returns the directive for the next turn, or nil once it
// has expired. A scripted objection waits for its turn regardless of the
// lifetime and is consumed when it fires.
func advanceDirective(d *Directive, fired bool) *Directive {
	if d == nil {
		return nil
	}
	next := *d
	if d.Kind == DirectiveScriptedObjection {
		if fired {
			return nil
		}
		return &next
	}
	next.TurnsRemaining--
	if next.TurnsRemaining <= 0 {
		return nil
	}
	return &next
}

// #endregion gate-override
