package orchestrator

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "That sounds interesting.", "That sounds interesting."},
		{"bracket direction", "[sighs] Okay, go on.", "Okay, go on."},
		{"currency bracket kept", "You said [£2,000] a month?", "You said [£2,000] a month?"},
		{"digit bracket kept", "Is that [12] seats?", "Is that [12] seats?"},
		{"asterisks", "*leans back* I'm not sure.", "I'm not sure."},
		{"stray asterisk kept", "It's 5 * 3 seats *sighs* ok", "It's 5 * 3 seats ok"},
		{"single letter action", "*x* Right.", "Right."},
		{"parenthetical", "Well (pauses) maybe.", "Well maybe."},
		{"em-dash aside", "I guess — she glances at her watch — we could talk.", "I guess we could talk."},
		{"space before punctuation", "Fine *nods* .", "Fine."},
		{"speaker tag", "Prospect: Who is this?", "Who is this?"},
		{"wrapping quotes", `"Not interested."`, "Not interested."},
		{"only directions", "[silence] *stares*", ""},
		{"whitespace", "  Too   many\n\nspaces ", "Too many spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
