package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wifictl/internal/agent"
)

func newRunCommand(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the connectivity supervisor",
		Example: `  # Run with the default config
  wifictl run

  # Run with the status API on localhost
  wifictl run --config ./wifictl.yaml --listen 127.0.0.1:8780`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadValid()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.API.Listen = listen
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer cancel()

			err = agent.Run(ctx, cfg)
			if errors.Is(err, context.Canceled) {
				zap.S().Info("wifi supervisor stopped")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "status API listen address (overrides api.listen)")
	return cmd
}
