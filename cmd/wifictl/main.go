package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wifictl/internal/config"
	"wifictl/internal/logger"
)

const defaultConfigPath = "/etc/wifictl/wifictl.yaml"

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logFormat  string
	logLevel   string
}

func main() {
	opts := &options{}
	var undo func()
	var sync func() error

	rootCmd := &cobra.Command{
		Use:           "wifictl",
		Short:         "Keep a device's wifi link connected",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, level := opts.logSettings()
			if err := logger.Validate(format, level); err != nil {
				return err
			}
			l, err := logger.Init(format, level)
			if err != nil {
				return err
			}
			undo = zap.ReplaceGlobals(l)
			sync = l.Sync
			return nil
		},
	}
	registerFlags(rootCmd, opts)

	rootCmd.AddCommand(
		newRunCommand(opts),
		newScanCommand(opts),
		newCheckCommand(opts),
		newStatusCommand(opts),
		newReconnectCommand(),
		newStatsCommand(opts),
		newExportCommand(opts),
		newValidateCommand(opts),
	)

	err := rootCmd.Execute()
	if sync != nil {
		_ = sync()
	}
	if undo != nil {
		undo()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerFlags(cmd *cobra.Command, opts *options) {
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to YAML config")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "format of the logs: console or json (default from config, else console)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default from config, else info)")
}

// logSettings resolves flags first, then the config file, then defaults.
func (o *options) logSettings() (string, string) {
	format, level := o.logFormat, o.logLevel
	if format == "" || level == "" {
		if cfg, err := config.Load(o.configPath); err == nil {
			if format == "" {
				format = cfg.Log.Format
			}
			if level == "" {
				level = cfg.Log.Level
			}
		}
	}
	if format == "" {
		format = logger.FormatConsole
	}
	if level == "" {
		level = "info"
	}
	return format, level
}

func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadValid loads the config and refuses to continue when it is invalid.
func (o *options) loadValid() (config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return cfg, err
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", o.configPath, err)
	}
	return cfg, nil
}
