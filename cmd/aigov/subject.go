package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
)

func newUsageCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <subject>",
		Short: "Show a subject's usage for the current period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.engine.GetUsage(context.Background(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "SUBJECT\t%s\n", u.SubjectID)
			fmt.Fprintf(w, "PLAN\t%s\n", u.Plan)
			fmt.Fprintf(w, "PERIOD START\t%s\n", u.PeriodStart.Format("2006-01-02"))
			fmt.Fprintf(w, "TOKENS\t%d / %s (%.1f%%)\n", u.TokensUsed, limitStr(u.TokenLimit), u.PercentUsed)
			fmt.Fprintf(w, "TOKENS TODAY\t%d\n", u.TokensToday)
			fmt.Fprintf(w, "BILLED\t$%.4f\n", u.BilledUSD)
			fmt.Fprintf(w, "RESERVED\t$%.4f\n", u.ReservedUSD)
			fmt.Fprintf(w, "SOFT / HARD CAP\t$%.2f / $%.2f\n", u.SoftCapUSD, u.HardCapUSD)
			fmt.Fprintf(w, "MESSAGES\t%d rule, %d local model, %d cloud\n", u.LocalRuleMessages, u.LocalModelMessages, u.CloudMessages)
			fmt.Fprintf(w, "EFFICIENCY\t%.1f%%\n", u.EfficiencyRatio*100)
			fmt.Fprintf(w, "LIFETIME\t%d tokens, $%.4f\n", u.LifetimeTokens, u.LifetimeBilledUSD)
			if u.Status != models.ReasonNone {
				fmt.Fprintf(w, "STATUS\t%s\n", u.Status)
			}
			return w.Flush()
		},
	}
}

func limitStr(n int64) string {
	if n == policy.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func newCheckCmd(configPath *string) *cobra.Command {
	var (
		complexity string
		commit     bool
	)

	cmd := &cobra.Command{
		Use:   "check <subject> <intent>",
		Short: "Show the admission decision for an interaction",
		Long: "Show the admission decision for an interaction. By default nothing is recorded;\n" +
			"--commit runs a real admission that counts toward rate limits and reserves budget in strict mode.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := models.Intent(args[1])
			if !intent.Valid() {
				return fmt.Errorf("unknown intent %q", args[1])
			}

			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			check := a.engine.PreviewAvailability
			if commit {
				check = a.engine.CheckAvailability
			}
			res, err := check(context.Background(), args[0], intent, models.ParseComplexity(complexity))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ALLOWED\t%t\n", res.Allowed)
			fmt.Fprintf(w, "CLOUD\t%t\n", res.AllowedCloud)
			fmt.Fprintf(w, "TIER\t%s\n", res.RecommendedTier)
			if res.BlockReason != models.ReasonNone {
				fmt.Fprintf(w, "REASON\t%s: %s\n", res.BlockReason, res.BlockReason.Message())
			}
			if res.RetryAfter > 0 {
				fmt.Fprintf(w, "RETRY AFTER\t%s\n", res.RetryAfter)
			}
			fmt.Fprintf(w, "REMAINING\t%d tokens, $%.4f (%.1f%%)\n", res.TokensRemaining, res.USDRemaining, res.PercentRemaining)
			if res.ReservationID != "" {
				fmt.Fprintf(w, "RESERVATION\t%s ($%.4f)\n", res.ReservationID, res.ReservedUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&complexity, "complexity", "moderate", "simple, moderate or complex")
	cmd.Flags().BoolVar(&commit, "commit", false, "record the admission instead of previewing it")
	return cmd
}

func newRecordCmd(configPath *string) *cobra.Command {
	var (
		intent      string
		tier        string
		input       int64
		output      int64
		duration    time.Duration
		reservation string
		external    bool
	)

	cmd := &cobra.Command{
		Use:   "record <subject>",
		Short: "Record a completed interaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			var rec models.InteractionRecord
			if external {
				rec, err = a.engine.RecordExternalUsage(ctx, args[0], input, output, models.ExecutionTier(tier), models.Intent(intent))
			} else {
				if intent == "" {
					intent = string(models.IntentCoaching)
				}
				rec, err = a.engine.RecordCompletedCall(ctx, args[0], models.CompletedCall{
					Intent:        models.Intent(intent),
					Tier:          models.ExecutionTier(tier),
					InputTokens:   input,
					OutputTokens:  output,
					Duration:      duration,
					ReservationID: reservation,
				})
			}
			if err != nil {
				return err
			}
			fmt.Printf("Recorded %s: %d tokens on %s, billed $%.6f\n", rec.ID, rec.TotalTokens(), rec.Tier, rec.BilledUSD)
			return nil
		},
	}

	cmd.Flags().StringVar(&intent, "intent", "", "interaction intent (default coaching, or external with --external)")
	cmd.Flags().StringVar(&tier, "tier", string(models.TierCloudA), "execution tier that served the call")
	cmd.Flags().Int64Var(&input, "input", 0, "input tokens")
	cmd.Flags().Int64Var(&output, "output", 0, "output tokens")
	cmd.Flags().DurationVar(&duration, "duration", 0, "call duration")
	cmd.Flags().StringVar(&reservation, "reservation", "", "reservation id from a strict admission")
	cmd.Flags().BoolVar(&external, "external", false, "record as external usage")
	return cmd
}

func newReleaseCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "release <subject> <reservation-id>",
		Short: "Release a strict-mode reservation for a call that did not complete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.engine.ReleaseReservation(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Released reservation %s\n", args[1])
			return nil
		},
	}
}

func newResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <subject>",
		Short: "Zero a subject's period counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			changed, err := a.engine.ForceReset(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("Nothing to reset.")
				return nil
			}
			fmt.Printf("Reset period counters for %s\n", args[0])
			return nil
		},
	}
}

func newPlanCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage subject plans",
	}

	setCmd := &cobra.Command{
		Use:   "set <subject> <plan>",
		Short: "Change a subject's plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.engine.UpdatePlan(context.Background(), args[0], models.PlanTier(args[1])); err != nil {
				return err
			}
			fmt.Printf("%s is now on the %s plan\n", args[0], args[1])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List plans and their limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			h, err := policy.Open(cfg.Policy.Path, nil)
			if err != nil {
				return err
			}
			p := h.Get()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN\tTOKENS/MONTH\tMSGS/DAY\tTOKENS/DAY\tSOFT CAP\tHARD CAP")
			for _, plan := range models.AllPlans {
				l := p.Limits(plan)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t$%.2f\t$%.2f\n",
					plan, limitStr(l.MonthlyTokenLimit), l.MaxMessagesPerDay,
					limitStr(p.MaxTokensPerDay(plan, plan == models.PlanTrial)), l.SoftCapUSD, l.HardCapUSD)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(setCmd, listCmd)
	return cmd
}
