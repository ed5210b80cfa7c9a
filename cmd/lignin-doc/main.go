// Command lignin-doc inspects and edits lignin documents from the shell.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/lignin/pkg/config"
	"github.com/chazu/lignin/pkg/metrics"
	"github.com/chazu/lignin/pkg/persist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	jsonOutput  bool
	showMetrics bool

	cfg     config.Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	codec   *persist.Codec
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lignin-doc",
		Short:         "Inspect and edit lignin documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.showMetrics {
				return a.printMetrics(cmd)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "print collected metrics after the command")

	root.AddCommand(
		a.newCmd(),
		a.addCmd(),
		a.booleanCmd(),
		a.duplicateCmd(),
		a.removeCmd(),
		a.partsCmd(),
		a.validateCmd(),
		a.convertCmd(),
		a.meshCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := a.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			a.logger.Debug("no user config dir", "error", err)
		}
		path = p
	}
	a.cfg = config.Default()
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	a.reg = prometheus.NewRegistry()
	a.metrics = metrics.New(a.reg)
	a.codec = &persist.Codec{
		Timeout: a.cfg.LoadTimeout(),
		Logger:  a.logger,
		Metrics: a.metrics,
	}
	a.logger.Debug("config loaded", "path", path, "format", a.cfg.Format())
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
