package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/replay"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture or a recorded session through the behavior pipeline",
	Long: `Replay re-runs operator turns through signals, transition, eval and gate
without calling a provider, then compares each turn's action with the record.

  roleplay replay --fixture testdata/cold_call.json
  roleplay replay --db roleplay.db --session <id>`,
	RunE: runReplay,
}

var (
	replayFixture string
	replaySession string
)

// errDiverged makes the command exit non-zero when any turn differs.
var errDiverged = errors.New("replay diverged from record")

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "fixture JSON (fixture mode)")
	replayCmd.Flags().StringVarP(&replaySession, "session", "s", "", "session ID in the store (DB mode)")
	replayCmd.MarkFlagsMutuallyExclusive("fixture", "session")
	replayCmd.MarkFlagsOneRequired("fixture", "session")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayFixture != "" {
		return runFixtureMode(replayFixture)
	}
	return runSessionMode(cmd, replaySession)
}

// #region fixture-mode
func runFixtureMode(path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	start, err := f.Start.StartState()
	if err != nil {
		return fmt.Errorf("fixture start: %w", err)
	}

	results := replay.Replay(start, f.ToInteractions(), f.Config.ToReplayConfig(), rand.New(rand.NewPCG(f.Seed, 0)))

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}
	return printComparison(start, results, expected)
}

// #endregion fixture-mode

// #region session-mode
func runSessionMode(cmd *cobra.Command, id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	rec, err := replay.FromStore(cmd.Context(), store, id)
	if err != nil {
		return err
	}

	rc := replay.DefaultReplayConfig()
	rc.Gate = cfg.Gate
	rc.Producer = cfg.Signals
	results := replay.Replay(rec.Start, rec.Interactions, rc, rec.Draws())
	return printComparison(rec.Start, results, rec.Decisions)
}

// #endregion session-mode

// #region output

// printComparison outputs a comparison table and fails when any turn diverges.
func printComparison(start state.BehaviorState, results []replay.ReplayResult, expected []string) error {
	fmt.Printf("%-10s| %-10s| %-10s| %-8s| %-6s| %s\n", "Turn", "Expected", "Replayed", "Surface", "Trust", "Match")
	fmt.Printf("%-10s+%-11s+%-11s+%-9s+%-7s+%s\n",
		"----------", "-----------", "-----------", "---------", "-------", "------")

	total := min(len(results), len(expected))
	for i := 0; i < total; i++ {
		r := results[i]
		match := "OK"
		if r.Action != expected[i] {
			match = "DIFF"
		}
		fmt.Printf("%-10s| %-10s| %-10s| %-8t| %-6.2f| %s\n", r.TurnID, expected[i], r.Action, r.Gate.Surface, r.State.Trust, match)
	}

	sum := replay.Summarize(start, results)
	div := replay.Compare(results, expected)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, total-len(div), len(div))
	fmt.Printf("Actions: commit=%d no_op=%d reject=%d degraded=%d surfaced=%d\n",
		sum.Commits, sum.NoOps, sum.Rejects, sum.Degraded, sum.Surfaced)
	fmt.Printf("State:   R %.2f → %.2f | T %.2f → %.2f | openness %s → %s\n",
		sum.StartState.Resistance, sum.FinalState.Resistance,
		sum.StartState.Trust, sum.FinalState.Trust,
		sum.StartState.Openness, sum.FinalState.Openness)

	if len(div) > 0 {
		return fmt.Errorf("%w: %d of %d turns", errDiverged, len(div), total)
	}
	return nil
}

// #endregion output
