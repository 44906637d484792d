package orchestrator

import "fmt"

// #region engine

// RetryEngine decides whether a rejected reply gets another attempt.
type RetryEngine struct {
	maxRetries int
}

// NewRetryEngine creates a retry engine allowing maxRetries extra attempts.
func NewRetryEngine(maxRetries int) *RetryEngine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryEngine{maxRetries: maxRetries}
}

// #endregion

// #region should-retry

// ShouldRetry reports whether to try again. attempts contains every attempt
// so far, including the one just evaluated.
func (r *RetryEngine) ShouldRetry(attempts []Attempt) bool {
	if len(attempts) == 0 || len(attempts) > r.maxRetries {
		return false
	}
	return attempts[len(attempts)-1].Evaluation.Retryable
}

// #endregion

// #region reminders

var reminders = map[FailureType]string{
	FailureEmpty:          "Your last reply was empty. Answer the rep in a sentence or two.",
	FailureCharacterBreak: "Your last reply stepped out of character. You are the prospect on this call; answer only as them.",
	FailureRepetition:     "Your last reply repeated itself. Say it once, briefly.",
	FailureTransport:      "",
}

// withReminder appends a correction for the previous failure to the system
// instructions.
func withReminder(system string, failure FailureType) string {
	note, ok := reminders[failure]
	if !ok || note == "" {
		return system
	}
	return fmt.Sprintf("%s\n\n## Correction\n%s", system, note)
}

// #endregion
