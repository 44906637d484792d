package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/difficulty"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/funnel"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/state"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample difficulty profiles within a tier and show the starting state",
	RunE:  runSample,
}

var (
	sampleTier      string
	sampleAuthority string
	sampleFunnel    string
	sampleCount     int
	sampleSeed      uint64
	sampleJSON      bool
)

func init() {
	sampleCmd.Flags().StringVarP(&sampleTier, "tier", "t", "realistic", "difficulty tier")
	sampleCmd.Flags().StringVarP(&sampleAuthority, "authority", "a", "peer", "prospect authority")
	sampleCmd.Flags().StringVarP(&sampleFunnel, "funnel", "f", "warm_inbound", "funnel category")
	sampleCmd.Flags().IntVarP(&sampleCount, "count", "n", 5, "profiles to draw")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 1, "sampling seed")
	sampleCmd.Flags().BoolVar(&sampleJSON, "json", false, "output as JSON instead of table")
}

type sampleRow struct {
	Dimensions difficulty.Dimensions `json:"dimensions"`
	Index      int                   `json:"index"`
	Tier       difficulty.Tier       `json:"tier"`
	Start      state.BehaviorState   `json:"start"`
}

func runSample(cmd *cobra.Command, args []string) error {
	tier, err := difficulty.ParseTier(sampleTier)
	if err != nil {
		return err
	}
	authority, err := difficulty.ParseAuthority(sampleAuthority)
	if err != nil {
		return err
	}
	category, err := funnel.ParseCategory(sampleFunnel)
	if err != nil {
		return err
	}
	fc, err := funnel.Classify(category)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(sampleSeed, 0))
	rows := make([]sampleRow, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		dims, err := difficulty.SampleWithinTier(tier, authority, rng)
		if err != nil {
			return err
		}
		p := difficulty.NewProfile(dims, authority)
		rows = append(rows, sampleRow{Dimensions: p.Dimensions, Index: p.Index, Tier: p.Tier, Start: state.Initialize(p, fc)})
	}

	if sampleJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-16s  %5s  %-15s  %5s  %5s  %s\n", "Dims (A/P/N/F/E)", "Index", "Tier", "R", "T", "Openness")
	for _, r := range rows {
		d := r.Dimensions
		dims := fmt.Sprintf("%d/%d/%d/%d/%d", d.PositionAlignment, d.PainIntensity, d.PerceivedNeed, d.FunnelContext, d.ExecutionResistance)
		fmt.Printf("%-16s  %5d  %-15s  %5.2f  %5.2f  %s\n", dims, r.Index, r.Tier, r.Start.Resistance, r.Start.Trust, r.Start.Openness)
	}
	return nil
}
