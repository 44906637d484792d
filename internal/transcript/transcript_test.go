package transcript

import "testing"

func sample() []Turn {
	return []Turn{
		{Index: 0, Role: RoleOperator, Text: "Hi Dana"},
		{Index: 1, Role: RoleCounterpart, Text: "Hello"},
		{Index: 2, Role: RoleOperator, Text: "What's going on?"},
		{Index: 3, Role: RoleCounterpart, Text: "Busy QUARTER"},
		{Index: 4, Role: RoleOperator, Text: "Tell me more"},
	}
}

func TestLastByRole(t *testing.T) {
	got := LastByRole(sample(), RoleCounterpart, 5)
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 3 {
		t.Fatalf("unexpected turns: %+v", got)
	}
	got = LastByRole(sample(), RoleOperator, 1)
	if len(got) != 1 || got[0].Index != 4 {
		t.Fatalf("unexpected last operator turn: %+v", got)
	}
}

func TestTextLowercasesByRole(t *testing.T) {
	got := Text(sample(), RoleCounterpart)
	if got != "hello\nbusy quarter\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWindowAndNextIndex(t *testing.T) {
	turns := sample()
	if w := Window(turns, 2); len(w) != 2 || w[0].Index != 3 {
		t.Fatalf("window: %+v", w)
	}
	if w := Window(turns, 0); len(w) != len(turns) {
		t.Fatalf("window 0 should return all turns")
	}
	if NextIndex(turns) != 5 {
		t.Fatalf("NextIndex = %d", NextIndex(turns))
	}
	if NextIndex(nil) != 0 {
		t.Fatal("NextIndex(nil) should be 0")
	}
	if CountRole(turns, RoleOperator) != 3 {
		t.Fatal("expected 3 operator turns")
	}
}
