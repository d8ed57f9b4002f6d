package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eqsat/eqsat/internal/engine"
	"github.com/eqsat/eqsat/pkg/presetfile"
	"github.com/eqsat/eqsat/pkg/utils"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run <preset.yaml>",
	Short: "Run a preset to a halt and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full timeline as JSON instead of a summary")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	preset, opts, err := presetfile.Load(args[0])
	if err != nil {
		return err
	}

	eng := engine.New(utils.NewRealClock(), log)
	if err := eng.LoadPreset(preset, opts, nil); err != nil {
		return fmt.Errorf("load preset: %w", err)
	}

	timeline, err := eng.RunUntilHalt()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if runJSON {
		return printTimelineJSON(timeline)
	}

	log.Info("preset:  %s", preset.ID)
	log.Info("steps:   %d", len(timeline.States))
	log.Info("halted:  %s", timeline.HaltedReason)
	return nil
}
