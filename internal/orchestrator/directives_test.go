package orchestrator

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/gate"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/stages"
)

func TestDirectiveValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Directive
		ok   bool
	}{
		{"phase replay", Directive{Kind: DirectivePhaseReplay, Phase: stages.StageExploration}, true},
		{"phase replay unknown phase", Directive{Kind: DirectivePhaseReplay, Phase: "closing"}, false},
		{"scripted", Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryTrust}, true},
		{"scripted none", Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryNone}, false},
		{"skill gap", Directive{Kind: DirectiveSkillGap, Skill: "handling price"}, true},
		{"skill gap blank", Directive{Kind: DirectiveSkillGap, Skill: "  "}, false},
		{"unknown kind", Directive{Kind: "improv"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.d
			err := d.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidDirective) {
				t.Fatalf("err = %v, want ErrInvalidDirective", err)
			}
			if tt.ok && d.TurnsRemaining != defaultLifetime {
				t.Errorf("TurnsRemaining = %d, want default %d", d.TurnsRemaining, defaultLifetime)
			}
		})
	}

	var nilDirective *Directive
	if err := nilDirective.Validate(); !errors.Is(err, ErrInvalidDirective) {
		t.Fatalf("nil directive: %v", err)
	}
}

func TestDirectiveScriptedDefaultsToFirstTurn(t *testing.T) {
	d := Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryFit}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	if d.AtTurn != 1 {
		t.Fatalf("AtTurn = %d, want 1", d.AtTurn)
	}
}

func TestDirectiveRender(t *testing.T) {
	replay := &Directive{Kind: DirectivePhaseReplay, Phase: stages.StageProposal}
	if got := replay.Render(1); !strings.Contains(got, "proposal phase") {
		t.Errorf("phase replay render = %q", got)
	}

	skill := &Directive{Kind: DirectiveSkillGap, Skill: "asking for the close"}
	if got := skill.Render(1); !strings.Contains(got, "asking for the close") {
		t.Errorf("skill gap render = %q", got)
	}

	scripted := &Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryValue, AtTurn: 3, Line: "Why would I pay for this?"}
	if got := scripted.Render(2); got != "" {
		t.Errorf("scripted objection should not render before its turn: %q", got)
	}
	got := scripted.Render(3)
	if !strings.Contains(got, "value objection") || !strings.Contains(got, "Why would I pay for this?") {
		t.Errorf("scripted render = %q", got)
	}

	var none *Directive
	if none.Render(1) != "" {
		t.Error("nil directive should render nothing")
	}
}

func TestApplyDirectiveOnlyTouchesScripted(t *testing.T) {
	gd := gate.GateDecision{Surface: true, Category: objection.CategoryTrust, Reason: "draw"}
	skill := &Directive{Kind: DirectiveSkillGap, Skill: "discovery"}
	if applyDirective(skill, 1, &gd) || !gd.Surface || gd.Category != objection.CategoryTrust {
		t.Fatalf("skill gap should leave the gate alone: %+v", gd)
	}
	if applyDirective(nil, 1, &gd) {
		t.Fatal("nil directive fired")
	}
}

func TestAdvanceDirective(t *testing.T) {
	d := &Directive{Kind: DirectiveSkillGap, Skill: "discovery", TurnsRemaining: 2}
	next := advanceDirective(d, false)
	if next == nil || next.TurnsRemaining != 1 {
		t.Fatalf("next = %+v", next)
	}
	if d.TurnsRemaining != 2 {
		t.Fatal("advance must not mutate the input")
	}
	if advanceDirective(next, false) != nil {
		t.Fatal("directive should expire when lifetime runs out")
	}

	scripted := &Directive{Kind: DirectiveScriptedObjection, Category: objection.CategoryFit, AtTurn: 9, TurnsRemaining: 1}
	if advanceDirective(scripted, false) == nil {
		t.Fatal("scripted objection should wait for its turn")
	}
	if advanceDirective(scripted, true) != nil {
		t.Fatal("scripted objection should be consumed when it fires")
	}
}
