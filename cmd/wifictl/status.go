package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wifictl/internal/api"
	"wifictl/internal/store"
	"wifictl/internal/supervisor"
)

func newStatusCommand(opts *options) *cobra.Command {
	var (
		remote string
		path   string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the supervisor state",
		Long: `Show the supervisor state, either from the status file written by a
running daemon or, with --remote, from its status API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if remote != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				resp, err := api.NewClient(remote).Status(ctx)
				if err != nil {
					return err
				}
				printRemoteStatus(out, resp)
				return nil
			}

			if path == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				path = cfg.Feedback.StatusPath
			}
			if path == "" {
				return errors.New("status path required: set feedback.status_path or pass --path")
			}
			st, err := store.LoadStatus(path)
			if err != nil {
				return err
			}
			printStatus(out, st)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "status API address of a running daemon (host:port)")
	cmd.Flags().StringVar(&path, "path", "", "status file override")
	return cmd
}

func newReconnectCommand() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "reconnect",
		Short: "Ask a running daemon to drop the link and rescan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote == "" {
				return errors.New("--remote is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := api.NewClient(remote).Reconnect(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "status API address of a running daemon (host:port)")
	return cmd
}

func printStatus(w io.Writer, st *store.Status) {
	fmt.Fprintf(w, "phase:      %s\n", phaseColor(st.Phase).Sprint(st.Phase))
	if st.Interface != "" {
		fmt.Fprintf(w, "interface:  %s\n", st.Interface)
	}
	if st.Network != "" {
		fmt.Fprintf(w, "network:    %s\n", st.Network)
	}
	if !st.Since.IsZero() {
		fmt.Fprintf(w, "since:      %s (%s ago)\n", st.Since.Format(time.RFC3339), since(st.Since))
	}
	if st.LastEvent != "" {
		fmt.Fprintf(w, "last event: %s\n", st.LastEvent)
	}
	if !st.LastConnected.IsZero() {
		fmt.Fprintf(w, "connected:  %s\n", st.LastConnected.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "changes:    %d\n", st.Transitions)
}

func printRemoteStatus(w io.Writer, resp api.StatusResponse) {
	s := resp.State
	fmt.Fprintf(w, "phase:      %s\n", phaseColor(s.Phase).Sprint(s.Phase))
	fmt.Fprintf(w, "interface:  %s (%s)\n", resp.Interface, resp.Driver)
	if s.CurrentNetwork != "" {
		fmt.Fprintf(w, "network:    %s\n", s.CurrentNetwork)
	}
	if s.TargetNetwork != "" && s.TargetNetwork != s.CurrentNetwork {
		fmt.Fprintf(w, "target:     %s\n", s.TargetNetwork)
	}
	if !s.LastSuccessfulConnect.IsZero() {
		fmt.Fprintf(w, "connected:  %s (%s ago)\n", s.LastSuccessfulConnect.Format(time.RFC3339), since(s.LastSuccessfulConnect))
	}
	if s.InternetCheckEnabled && !s.LastInternetCheck.IsZero() {
		fmt.Fprintf(w, "checked:    %s ago\n", since(s.LastInternetCheck))
	}
	fmt.Fprintf(w, "registered: %s\n", strings.Join(resp.Networks, ", "))
}

func phaseColor(p supervisor.Phase) *color.Color {
	switch p {
	case supervisor.PhaseConnected:
		return color.New(color.FgGreen, color.Bold)
	case supervisor.PhaseDisconnected, supervisor.PhaseInternetCheckFailed:
		return color.New(color.FgRed)
	case supervisor.PhaseIdle:
		return color.New(color.Faint)
	default:
		return color.New(color.FgYellow)
	}
}

func since(t time.Time) time.Duration {
	return time.Since(t).Round(time.Second)
}
