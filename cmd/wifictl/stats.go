package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"wifictl/internal/config"
	"wifictl/internal/metrics"
)

func newStatsCommand(opts *options) *cobra.Command {
	var (
		window time.Duration
		path   string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the recorded phase transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readHistory(opts, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			summary := metrics.Summarize(items, time.Now().UTC().Add(-window))
			if summary.Count == 0 {
				fmt.Fprintln(out, "no transitions in window")
				return nil
			}

			fmt.Fprintf(out, "transitions=%d from=%s to=%s\n", summary.Count, summary.From.Format(time.RFC3339), summary.To.Format(time.RFC3339))
			fmt.Fprintf(out, "connects=%d link_losses=%d connect_timeouts=%d scan_failures=%d internet_failures=%d refreshes=%d\n",
				summary.Connects, summary.LinkLosses, summary.ConnectTimeouts, summary.ScanFailures, summary.InternetFailures, summary.Refreshes)
			fmt.Fprintf(out, "connected=%s availability=%.2f%% time_to_connect avg=%s p95=%s\n",
				summary.ConnectedTime.Round(time.Second), summary.Availability,
				summary.AvgTimeToConnect.Round(time.Millisecond), summary.P95TimeToConnect.Round(time.Millisecond))

			names := make([]string, 0, len(summary.Networks))
			for name := range summary.Networks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "network %q connects=%d\n", name, summary.Networks[name])
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "time window")
	cmd.Flags().StringVar(&path, "path", "", "transition CSV path override")
	return cmd
}

func newExportCommand(opts *options) *cobra.Command {
	var (
		out    string
		window time.Duration
		path   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded phase transitions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			items, err := readHistory(opts, path)
			if err != nil {
				return err
			}
			if window > 0 {
				cutoff := time.Now().UTC().Add(-window)
				kept := items[:0]
				for _, t := range items {
					if !t.Timestamp.Before(cutoff) {
						kept = append(kept, t)
					}
				}
				items = kept
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := metrics.WriteCSV(f, items); err != nil {
				return err
			}
			if err := f.Sync(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d transitions to %s\n", len(items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().DurationVar(&window, "window", 0, "only export this recent window (0 exports everything)")
	cmd.Flags().StringVar(&path, "path", "", "transition CSV path override")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadValid()
			if err != nil {
				return err
			}
			reg, skipped := config.Registry(cfg)
			for _, err := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %v\n", err)
			}
			if reg.Len() == 0 {
				return errors.New("no usable networks")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d of %d networks registered on %s via %s\n",
				reg.Len(), len(cfg.Networks), cfg.Interface, cfg.Driver)
			return nil
		},
	}
}

func readHistory(opts *options, path string) ([]metrics.Transition, error) {
	if path == "" {
		cfg, err := opts.load()
		if err != nil {
			return nil, err
		}
		path = cfg.Feedback.EventsPath
	}
	if path == "" {
		return nil, errors.New("transition path required: set feedback.events_path or pass --path")
	}
	return metrics.ReadCSV(path)
}
