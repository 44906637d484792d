package transcript

import (
	"strings"
	"time"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/objection"
)

// #region role

// Role identifies the speaker of a turn.
type Role string

const (
	RoleOperator    Role = "operator"
	RoleCounterpart Role = "counterpart"
)

// #endregion role

// #region turn

// Turn is one append-only transcript entry.
type Turn struct {
	Index      int                `json:"index"`
	Role       Role               `json:"role"`
	Text       string             `json:"text"`
	Resistance objection.Category `json:"resistance"`
	Degraded   bool               `json:"degraded,omitempty"` // counterpart text is the fallback line
	CreatedAt  time.Time          `json:"created_at"`
}

// #endregion turn

// #region helpers

// Text concatenates every turn spoken by role, lowercased.
func Text(turns []Turn, role Role) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role != role {
			continue
		}
		b.WriteString(strings.ToLower(t.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// FullText concatenates the whole transcript, lowercased.
func FullText(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(strings.ToLower(t.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// LastByRole returns up to n most recent turns by role, oldest first.
func LastByRole(turns []Turn, role Role, n int) []Turn {
	var out []Turn
	for i := len(turns) - 1; i >= 0 && len(out) < n; i-- {
		if turns[i].Role == role {
			out = append(out, turns[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Window returns the last n turns.
func Window(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// NextIndex is the index the next appended turn should carry.
func NextIndex(turns []Turn) int {
	if len(turns) == 0 {
		return 0
	}
	return turns[len(turns)-1].Index + 1
}

// CountRole counts turns spoken by role.
func CountRole(turns []Turn, role Role) int {
	n := 0
	for _, t := range turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

// #endregion helpers
