// Package cmd provides the CLI commands for decisionkit.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"decisionkit/internal/config"
	"decisionkit/internal/logging"
)

// Version is the CLI version
const Version = "0.1.0"

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "decisionkit",
		Short: "Decision analysis toolkit",
		Long: `decisionkit models sequential decision problems as influence diagrams,
expands them into decision trees and estimates joint probability
distributions from partial assessments under the maximum entropy principle.

Examples:
  decisionkit order ./wildcatter.json
  decisionkit convert ./wildcatter.json > tree.json
  decisionkit solve --format json ./assessments.yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.init() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) { logging.Sync(a.logger) },
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (JSON or YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newSolveCommand(a),
		newOrderCommand(a),
		newConvertCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) init() error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "decisionkit version %s\n", Version)
		},
	}
}
