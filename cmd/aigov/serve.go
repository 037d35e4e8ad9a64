package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/api"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the governance HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, true)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.Policy.Watch && a.cfg.Policy.Path != "" {
				if err := a.policy.Watch(); err != nil {
					return fmt.Errorf("watch policy: %w", err)
				}
			}

			addr := a.cfg.Listen
			if listen != "" {
				addr = listen
			}
			opts := []api.Option{api.WithLogger(a.logger)}
			if a.registry != nil {
				opts = append(opts, api.WithMetrics(a.metrics, a.registry, a.cfg.Metrics.Path))
			}
			if a.health != nil {
				opts = append(opts, api.WithHealthCheck(a.health))
			}
			srv := api.New(addr, a.engine, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.logger.Info("starting aigov",
				zap.String("config", *configPath),
				zap.String("store", a.cfg.Store.Driver),
				zap.String("policy_version", a.policy.Get().Version),
				zap.Bool("strict_reservations", a.cfg.Governance.StrictReservations),
			)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address")
	return cmd
}
