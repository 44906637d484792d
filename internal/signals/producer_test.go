package signals

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/transcript"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/update"
)

func TestProduce(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	tests := []struct {
		name      string
		utterance string
		want      update.ActionSignals
	}{
		{
			"authority and deep question",
			"In my experience with companies like yours, walk me through what's driving this?",
			update.ActionSignals{DemonstratedAuthority: true, AskedDeepQuestions: true},
		},
		{
			"value by whole word",
			"Most teams see ROI inside a quarter.",
			update.ActionSignals{BuiltValue: true},
		},
		{
			"roi inside another word is not value",
			"That would be destroying the plan.",
			update.ActionSignals{},
		},
		{
			"reframe",
			"Think of it as insurance rather than a cost.",
			update.ActionSignals{ReframedEffectively: true},
		},
		{
			"trust",
			"Fair enough, no pressure at all.",
			update.ActionSignals{BuiltTrust: true},
		},
		{
			"pressure",
			"You need to sign today, this is a limited time offer.",
			update.ActionSignals{AppliedPressure: true},
		},
		{
			"lost control",
			"Sorry, um, I mean, it's sort of hard to explain.",
			update.ActionSignals{LostControl: true},
		},
		{
			"plain question is not deep",
			"Is Tuesday ok?",
			update.ActionSignals{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Produce(ProduceInput{Utterance: tt.utterance})
			if got != tt.want {
				t.Fatalf("Produce = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProduce_OverExplained(t *testing.T) {
	p := NewProducer(ProducerConfig{VerboseWords: 10, ControlLossHits: 2, ObjectionLookback: 3})
	long := strings.Repeat("detail ", 11)
	if !p.Produce(ProduceInput{Utterance: long}).OverExplained {
		t.Fatal("expected over-explained for 11 words")
	}
	if p.Produce(ProduceInput{Utterance: "short answer"}).OverExplained {
		t.Fatal("short answer flagged as over-explained")
	}
}

func TestProduce_HandledObjectionNeedsLiveObjection(t *testing.T) {
	p := NewProducer(DefaultProducerConfig())
	reply := "That's fair. What specifically worries you about the cost?"

	none := p.Produce(ProduceInput{Utterance: reply})
	if none.HandledObjection {
		t.Fatal("no objection was raised, nothing to handle")
	}

	recent := []transcript.Turn{
		{Index: 1, Role: transcript.RoleCounterpart, Text: "Honestly it's too expensive for us.", Resistance: objection.CategoryValue},
	}
	got := p.Produce(ProduceInput{Utterance: reply, RecentCounterpart: recent})
	if !got.HandledObjection {
		t.Fatal("expected handled objection")
	}

	// Classified text is enough even when the stored category is none.
	recent[0].Resistance = objection.CategoryNone
	if !p.Produce(ProduceInput{Utterance: reply, RecentCounterpart: recent}).HandledObjection {
		t.Fatal("expected objection language in text to count")
	}
}

func TestProduce_LookbackWindow(t *testing.T) {
	p := NewProducer(ProducerConfig{VerboseWords: 120, ControlLossHits: 2, ObjectionLookback: 1})
	recent := []transcript.Turn{
		{Role: transcript.RoleCounterpart, Text: "Too expensive.", Resistance: objection.CategoryValue},
		{Role: transcript.RoleCounterpart, Text: "Okay, go on."},
	}
	if p.Produce(ProduceInput{Utterance: "Great question.", RecentCounterpart: recent}).HandledObjection {
		t.Fatal("objection outside lookback should not count")
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize("roi, (really)?  yes!"); got != "roi really yes" {
		t.Fatalf("normalize = %q", got)
	}
}
