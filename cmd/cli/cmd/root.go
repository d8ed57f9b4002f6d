package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eqsat/eqsat/pkg/utils"
)

var (
	// Global flags
	verbose bool
	logger  utils.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eqsat",
	Short: "An interactive equality-saturation engine",
	Long: `eqsat drives an e-graph through rewrite saturation one phase at a
time, recording a replayable timeline of every intermediate state.

It supports running a preset to completion, stepping through a run
phase by phase, and serving a small HTTP/gRPC API backed by a
configurable database and object storage for remote run submission.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	binName := BinName()
	rootCmd.Example = `  # Run a preset to completion and print the halted reason
  ` + binName + ` run ./presets/mul-one.yaml

  # Step through a preset one phase at a time
  ` + binName + ` step ./presets/mul-one.yaml

  # Start the HTTP + gRPC API and scheduler
  ` + binName + ` serve -c ./config.yaml`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
