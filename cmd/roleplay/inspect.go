package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/logging"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [session-id]",
	Short: "List sessions, or show one session's state versions and transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var (
	inspectLast  int
	inspectTurns bool
	inspectJSON  bool
)

func init() {
	inspectCmd.Flags().IntVarP(&inspectLast, "last", "n", 20, "show N most recent rows")
	inspectCmd.Flags().BoolVar(&inspectTurns, "turns", false, "print the transcript")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if len(args) == 0 {
		return runListMode(cmd, store)
	}
	return runDetailMode(cmd, store, args[0])
}

// #region list-mode
func runListMode(cmd *cobra.Command, store *state.Store) error {
	sessions, err := store.ListSessions(cmd.Context(), inspectLast)
	if err != nil {
		return err
	}
	if inspectJSON {
		return printJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	fmt.Printf("%-12s  %-7s  %-15s  %-16s  %5s  %s\n", "Session", "Status", "Tier", "Funnel", "Turns", "Created")
	for _, s := range sessions {
		fmt.Printf("%-12s  %-7s  %-15s  %-16s  %5d  %s\n",
			shortID(s.ID), s.Status, s.Tier, s.Funnel, s.Turns, s.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type versionRow struct {
	VersionID string              `json:"version_id"`
	TurnIndex int                 `json:"turn_index"`
	State     state.BehaviorState `json:"state"`
	Decision  string              `json:"decision,omitempty"`
	Signals   []string            `json:"signals,omitempty"`
	Surface   bool                `json:"surface"`
	Category  string              `json:"category,omitempty"`
	CreatedAt string              `json:"created_at"`
}

func runDetailMode(cmd *cobra.Command, store *state.Store, id string) error {
	ctx := cmd.Context()
	sess, err := store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	versions, err := store.ListVersions(ctx, id, inspectLast)
	if err != nil {
		return err
	}
	prov, err := store.ListProvenance(ctx, id, "turn")
	if err != nil {
		return err
	}
	records := make(map[string]logging.TurnRecord, len(prov))
	decisions := make(map[string]logging.ProvenanceEntry, len(prov))
	for _, p := range prov {
		if p.VersionID == "" || p.Decision == "degraded" {
			continue
		}
		decisions[p.VersionID] = p
		var tr logging.TurnRecord
		if err := json.Unmarshal([]byte(p.SignalsJSON), &tr); err == nil {
			records[p.VersionID] = tr
		}
	}

	// Store returns newest first; print chronologically.
	rows := make([]versionRow, len(versions))
	for i, v := range versions {
		row := versionRow{
			VersionID: v.VersionID,
			TurnIndex: v.TurnIndex,
			State:     v.State,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if p, ok := decisions[v.VersionID]; ok {
			row.Decision = p.Decision
			row.Category = p.Category
		}
		if tr, ok := records[v.VersionID]; ok {
			row.Signals = tr.Signals
			row.Surface = tr.Gate.Surface
		}
		rows[len(versions)-1-i] = row
	}

	if inspectJSON {
		out := map[string]any{"session": sess, "versions": rows}
		if inspectTurns {
			turns, err := store.ListTurns(ctx, id)
			if err != nil {
				return err
			}
			out["turns"] = turns
		}
		return printJSON(out)
	}

	fmt.Printf("Session:  %s\n", sess.ID)
	fmt.Printf("Status:   %s\n", sess.Status)
	fmt.Printf("Profile:  tier=%s index=%d authority=%s\n", sess.Profile.Tier, sess.Profile.Index, sess.Profile.Authority)
	fmt.Printf("Funnel:   %s (warmth %d)\n", sess.Funnel.Category, sess.Funnel.Warmth)
	fmt.Printf("Active:   %s\n\n", shortID(sess.ActiveVersion))

	fmt.Printf("%-10s  %5s  %-8s  %5s  %5s  %5s  %5s  %-8s  %-7s  %s\n",
		"Version", "Turn", "Decision", "R", "T", "E", "V", "Openness", "Surface", "Signals")
	for _, r := range rows {
		decision := r.Decision
		if r.TurnIndex < 0 {
			decision = "initial"
		}
		fmt.Printf("%-10s  %5d  %-8s  %5.2f  %5.2f  %5.2f  %5.2f  %-8s  %-7t  %v\n",
			shortID(r.VersionID), r.TurnIndex, decision, r.State.Resistance, r.State.Trust,
			r.State.Engagement, r.State.ValuePerception, r.State.Openness, r.Surface, r.Signals)
	}

	if inspectTurns {
		turns, err := store.ListTurns(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("\nTranscript:\n")
		for _, t := range turns {
			marker := ""
			if t.Degraded {
				marker = " (fallback)"
			} else if t.Resistance.Valid() {
				marker = " [" + string(t.Resistance) + "]"
			}
			fmt.Printf("  %3d %-11s %s%s\n", t.Index, t.Role, t.Text, marker)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
