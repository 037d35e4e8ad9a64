package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "aigov",
		Short:         "aigov: AI usage governance and cost-aware model routing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to aigov config file (default: built-in settings)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newUsageCmd(&configPath),
		newCheckCmd(&configPath),
		newRecordCmd(&configPath),
		newReleaseCmd(&configPath),
		newReportCmd(&configPath),
		newRoutingCmd(&configPath),
		newRecentCmd(&configPath),
		newResetCmd(&configPath),
		newPlanCmd(&configPath),
		newPolicyCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
