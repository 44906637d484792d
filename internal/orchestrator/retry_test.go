package orchestrator

import (
	"strings"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	retryable := Attempt{Evaluation: ReplyEvaluation{FailureType: FailureEmpty, Retryable: true}}
	final := Attempt{Evaluation: ReplyEvaluation{FailureType: FailureTimeout}}

	tests := []struct {
		name     string
		max      int
		attempts []Attempt
		want     bool
	}{
		{"no attempts", 1, nil, false},
		{"first failure retried", 1, []Attempt{retryable}, true},
		{"budget spent", 1, []Attempt{retryable, retryable}, false},
		{"not retryable", 3, []Attempt{final}, false},
		{"retries disabled", 0, []Attempt{retryable}, false},
		{"negative treated as zero", -2, []Attempt{retryable}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRetryEngine(tt.max).ShouldRetry(tt.attempts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithReminder(t *testing.T) {
	got := withReminder("base", FailureCharacterBreak)
	if !strings.HasPrefix(got, "base\n\n## Correction\n") || !strings.Contains(got, "character") {
		t.Fatalf("got %q", got)
	}
	if withReminder("base", FailureTransport) != "base" {
		t.Fatal("transport failures need no correction")
	}
}
