package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/sales-roleplay/go-controller/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Practice a call interactively in the terminal",
	RunE:  runChat,
}

var (
	flagSessionID string
	flagAuthority string
	flagFunnel    string
	flagTier      string
	flagProspect  string
	flagCompany   string
	flagOffer     string
	flagSeed      uint64
)

func init() {
	chatCmd.Flags().StringVarP(&flagSessionID, "session", "s", "", "resume an existing session")
	chatCmd.Flags().StringVarP(&flagAuthority, "authority", "a", "peer", "prospect authority: advisee, peer, advisor")
	chatCmd.Flags().StringVarP(&flagFunnel, "funnel", "f", "cold_outbound", "funnel category: cold_outbound, warm_inbound, content_educated, referral")
	chatCmd.Flags().StringVarP(&flagTier, "tier", "t", "realistic", "difficulty tier: easy, realistic, hard, elite, near_impossible")
	chatCmd.Flags().StringVar(&flagProspect, "prospect", "Jordan Hale", "prospect name")
	chatCmd.Flags().StringVar(&flagCompany, "company", "", "prospect company")
	chatCmd.Flags().StringVar(&flagOffer, "offer", "", "offer name")
	chatCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "sampling seed (0 picks one at random)")
}

// #region chat
func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var sess session.Session
	if flagSessionID != "" {
		sess, err = a.svc.Get(ctx, flagSessionID)
	} else {
		req := session.CreateRequest{
			Authority:      flagAuthority,
			FunnelCategory: flagFunnel,
			Tier:           flagTier,
			Scenario: orchestrator.Scenario{
				ProspectName: flagProspect,
				Company:      flagCompany,
				OfferName:    flagOffer,
			},
		}
		if flagSeed != 0 {
			req.Seed = &flagSeed
		}
		sess, err = a.svc.Create(ctx, req)
	}
	if err != nil {
		return err
	}

	fmt.Println("Roleplay session ready.")
	fmt.Printf("  Session: %s | Tier: %s (index %d) | Funnel: %s\n",
		sess.ID, sess.Profile.Tier, sess.Profile.Index, sess.Funnel.Category)
	fmt.Println("Speak as the rep. Commands: /state /stages /end, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		switch line {
		case "/state":
			cur, err := a.svc.Get(ctx, sess.ID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printState(cur)
			continue
		case "/stages":
			report, err := a.svc.DetectStages(ctx, sess.ID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("opening=%t exploration=%t proposal=%t resistance=%t commitment=%t missing=%v\n",
				report.Opening, report.Exploration, report.Proposal, report.Resistance, report.Commitment, report.Missing())
			continue
		case "/end":
			ended, err := a.svc.End(ctx, sess.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Session ended after %d turns. Incomplete: %t %v\n", len(ended.Turns)/2, ended.Incomplete, ended.Stages.Missing())
			return nil
		}

		out, err := a.svc.ProcessTurn(ctx, sess.ID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Printf("\n%s: %s\n\n", speaker(sess), out.Counterpart.Text)
		action := out.Transition.Decision.Action
		if out.Degraded {
			action = "degraded(" + string(out.FailureReason) + ")"
		}
		fmt.Printf("[turn-%d] action=%s resistance=%s p=%.2f R=%.2f T=%.2f\n",
			out.Operator.Index/2+1, action, out.Counterpart.Resistance, out.Gate.Probability,
			out.NewState.Resistance, out.NewState.Trust)
	}
	return scanner.Err()
}

// #endregion chat

// #region helpers
func speaker(s session.Session) string {
	if s.Scenario.ProspectName != "" {
		return s.Scenario.ProspectName
	}
	return "Prospect"
}

func printState(s session.Session) {
	st := s.State
	d := s.Derived
	fmt.Printf("resistance=%.2f trust=%.2f engagement=%.2f value=%.2f\n", st.Resistance, st.Trust, st.Engagement, st.ValuePerception)
	fmt.Printf("openness=%s depth=%s pace=%s | frequency=%s intensity=%s challenge=%s\n",
		st.Openness, st.AnswerDepth, st.ResponsePace, d.ObjectionFrequency, d.ObjectionIntensity, d.Challengeability)
	if s.Directive != nil {
		fmt.Printf("directive=%s turns_remaining=%d\n", s.Directive.Kind, s.Directive.TurnsRemaining)
	}
}

// #endregion helpers
