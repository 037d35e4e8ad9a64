package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dailywell/aigov/pkg/policy"
)

func newPolicyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate plan and pricing policy",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective policy as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			h, err := policy.Open(cfg.Policy.Path, nil)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(h.Get()); err != nil {
				return fmt.Errorf("encode policy: %w", err)
			}
			return enc.Close()
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a policy file without loading it into a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (version %s, %d plans, %d priced tiers)\n", args[0], p.Version, len(p.Plans), len(p.Pricing))
			return nil
		},
	}

	cmd.AddCommand(showCmd, validateCmd)
	return cmd
}
