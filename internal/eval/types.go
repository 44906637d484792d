package eval

// #region eval-config
// EvalConfig holds thresholds for post-transition validation.
type EvalConfig struct {
	MaxFieldDelta float64 // reject if any numeric field moves further than this in one turn
	MaxStepJump   int     // reject if a categorical field moves more steps than this
}

// DefaultEvalConfig returns defaults wide enough for every combination of the
// standard delta table.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxFieldDelta: 4.0,
		MaxStepJump:   1,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-transition validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
