package orchestrator

// #region imports
import (
	"errors"
	"strings"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/codec"
)

// #endregion

// #region character-break-patterns

// characterBreakPatterns are phrases a prospect would never say on a sales
// call; any one of them means the model stepped out of the role.
var characterBreakPatterns = []string{
	"as an ai",
	"as a language model",
	"language model",
	"i'm an assistant",
	"i am an assistant",
	"this roleplay",
	"this role-play",
	"role play",
	"this simulation",
	"stay in character",
	"break character",
	"my instructions",
	"system prompt",
	"i cannot roleplay",
	"how can i assist you",
}

// #endregion

// #region evaluate

// EvaluateReply checks a sanitized reply via string analysis. No model call.
func EvaluateReply(reply string) ReplyEvaluation {
	trimmed := strings.TrimSpace(reply)
	lower := strings.ToLower(trimmed)
	words := len(strings.Fields(trimmed))

	failure := detectFailure(trimmed, lower)
	return ReplyEvaluation{
		FailureType: failure,
		Retryable:   failure != FailureNone,
		WordCount:   words,
	}
}

// #endregion

// #region detect-failure

func detectFailure(trimmed, lower string) FailureType {
	if trimmed == "" {
		return FailureEmpty
	}
	for _, p := range characterBreakPatterns {
		if strings.Contains(lower, p) {
			return FailureCharacterBreak
		}
	}
	if hasRepetition(lower) {
		return FailureRepetition
	}
	return FailureNone
}

// #endregion

// #region repetition-check

func hasRepetition(lower string) bool {
	// Split into sentences, check for 3+ identical sentences
	sentences := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) < 3 {
		return false
	}
	counts := make(map[string]int)
	for _, s := range sentences {
		trimmed := strings.TrimSpace(s)
		if len(trimmed) > 10 {
			counts[trimmed]++
		}
	}
	for _, c := range counts {
		if c >= 3 {
			return true
		}
	}
	return false
}

// #endregion

// #region error-classification

// failureForError maps a generator error to a failure type. Timeouts and
// cancellations are never retried.
func failureForError(err error, parentDone, deadlineHit bool) ReplyEvaluation {
	switch {
	case parentDone:
		return ReplyEvaluation{FailureType: FailureCanceled}
	case deadlineHit:
		return ReplyEvaluation{FailureType: FailureTimeout}
	case errors.Is(err, codec.ErrEmptyResponse):
		return ReplyEvaluation{FailureType: FailureEmpty, Retryable: true}
	default:
		return ReplyEvaluation{FailureType: FailureTransport, Retryable: true}
	}
}

// #endregion
