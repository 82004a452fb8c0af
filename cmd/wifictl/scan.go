package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wifictl/internal/agent"
	"wifictl/internal/config"
	"wifictl/internal/execx"
	"wifictl/internal/probe"
	"wifictl/internal/supervisor"
	"wifictl/internal/wifi"
)

func newScanCommand(opts *options) *cobra.Command {
	var (
		aggressive bool
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan once and show which registered network would be chosen",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			r := execx.NewOSRunner(os.Stdout, os.Stderr)
			r.Timeout = cfg.CommandTimeout
			drv, err := wifi.New(cfg.Driver, r, wifi.Options{Interface: cfg.Interface, ScanSettle: cfg.ScanSettle})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			aps, err := agent.Scan(ctx, drv, aggressive, 100*time.Millisecond)
			if err != nil {
				return err
			}

			reg, _ := config.Registry(cfg)
			best := supervisor.SelectBest(reg, aps)
			bestName := ""
			if best >= 0 {
				bestName = reg.Get(best).Name
			}

			sort.SliceStable(aps, func(i, j int) bool { return aps[i].Signal > aps[j].Signal })
			known := color.New(color.FgGreen)
			chosen := color.New(color.FgGreen, color.Bold)
			for _, ap := range aps {
				_, registered := reg.Lookup(ap.Name)
				line := fmt.Sprintf("%5d dBm  %s", ap.Signal, ap.Name)
				switch {
				case registered && ap.Name == bestName:
					chosen.Fprintln(cmd.OutOrStdout(), line+"  <- best")
					bestName = ""
				case registered:
					known.Fprintln(cmd.OutOrStdout(), line)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			if best < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no registered network in range")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&aggressive, "aggressive", false, "request an active scan")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "give up after this long")
	return cmd
}

func newCheckCommand(opts *options) *cobra.Command {
	var (
		method  string
		host    string
		port    uint16
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the internet reachability probe once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ic := config.InternetCheckConfig{
				Method:  probe.MethodTCP,
				Host:    supervisor.DefaultInternetCheckHost,
				Port:    supervisor.DefaultInternetCheckPort,
				Timeout: supervisor.DefaultInternetCheckTimeout,
			}
			if cfg, err := opts.load(); err == nil {
				ic = cfg.InternetCheck
			}
			if cmd.Flags().Changed("method") {
				ic.Method = method
			}
			if cmd.Flags().Changed("host") {
				ic.Host = host
			}
			if cmd.Flags().Changed("port") {
				ic.Port = port
			}
			if cmd.Flags().Changed("timeout") {
				ic.Timeout = timeout
			}

			p, err := probe.New(ic.Method)
			if err != nil {
				return err
			}
			start := time.Now()
			ok := p.Check(cmd.Context(), ic.Host, ic.Port, ic.Timeout)
			elapsed := time.Since(start).Round(time.Millisecond)
			if !ok {
				color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "unreachable %s %s:%d after %s\n", ic.Method, ic.Host, ic.Port, elapsed)
				return fmt.Errorf("internet check failed")
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "reachable %s %s:%d in %s\n", ic.Method, ic.Host, ic.Port, elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", probe.MethodTCP, "probe method: tcp or stun")
	cmd.Flags().StringVar(&host, "host", supervisor.DefaultInternetCheckHost, "probe host")
	cmd.Flags().Uint16Var(&port, "port", supervisor.DefaultInternetCheckPort, "probe port")
	cmd.Flags().DurationVar(&timeout, "timeout", supervisor.DefaultInternetCheckTimeout, "probe timeout")
	return cmd
}
