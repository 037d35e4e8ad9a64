package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newReportCmd(configPath *string) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "report <subject>",
		Short: "Show a monthly usage report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var start time.Time
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month (use YYYY-MM): %w", err)
				}
				start = t
			}

			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.engine.MonthlyReport(context.Background(), args[0], start)
			if err != nil {
				return err
			}
			if rep == nil {
				fmt.Println("No usage in this period.")
				return nil
			}

			fmt.Printf("%s, %s: %d interactions (%d external), %d in / %d out tokens, $%.4f billed, %.1f%% local\n",
				rep.SubjectID, rep.PeriodStart.Format("January 2006"), rep.Interactions, rep.ExternalCalls,
				rep.InputTokens, rep.OutputTokens, rep.BilledUSD, rep.LocalShare*100)
			fmt.Printf("Peak day %s (%d calls, %d tokens)", rep.PeakDay.Date, rep.PeakDay.Calls, rep.PeakDay.Tokens)
			if rep.MostUsedIntent.Intent != "" {
				fmt.Printf(", most used intent %s (%d calls)", rep.MostUsedIntent.Intent, rep.MostUsedIntent.Calls)
			}
			fmt.Print("\n\n")

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tCALLS\tTOKENS\tBILLED")
			for _, t := range rep.ByTier {
				fmt.Fprintf(w, "%s\t%d\t%d\t$%.4f\n", t.Tier, t.Calls, t.Tokens, t.BilledUSD)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "DATE\tCALLS\tTOKENS\tBILLED")
			for _, d := range rep.ByDay {
				fmt.Fprintf(w, "%s\t%d\t%d\t$%.4f\n", d.Date, d.Calls, d.Tokens, d.BilledUSD)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to report (YYYY-MM, default: current month)")
	return cmd
}

func newRoutingCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "routing <subject>",
		Short: "Show per-intent routing stats and recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			stats, err := a.engine.RoutingIntentStats(ctx, args[0], limit)
			if err != nil {
				return err
			}
			recs, err := a.engine.RoutingRecommendations(ctx, args[0])
			if err != nil {
				return err
			}

			if len(stats) == 0 {
				fmt.Println("No interactions recorded.")
			} else {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "INTENT\tCALLS\tCLOUD\tLOCAL\tAVG IN\tAVG OUT\tBILLED\tAVG COST\tTOP TIER")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.0f\t%.0f\t$%.4f\t$%.5f\t%s\n",
						s.Intent, s.Calls, s.CloudCalls, s.LocalCalls,
						s.AvgInputTokens, s.AvgOutputTokens, s.BilledUSD, s.AvgBilledUSD, s.TopTier)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Println()
			for _, r := range recs {
				fmt.Printf("- %s\n", r.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "window", 0, "number of recent interactions to analyse (default 500)")
	return cmd
}

func newRecentCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent <subject>",
		Short: "List recent interactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			recs, err := a.engine.RecentInteractions(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No interactions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tID\tINTENT\tTIER\tIN\tOUT\tBILLED\tSOURCE")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t$%.6f\t%s\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.ID, r.Intent, r.Tier,
					r.InputTokens, r.OutputTokens, r.BilledUSD, r.Source)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of interactions")
	return cmd
}
