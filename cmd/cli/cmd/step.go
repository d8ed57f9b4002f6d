package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eqsat/eqsat/internal/engine"
	"github.com/eqsat/eqsat/pkg/presetfile"
	"github.com/eqsat/eqsat/pkg/utils"
)

var stepCmd = &cobra.Command{
	Use:   "step <preset.yaml>",
	Short: "Step through a preset one phase at a time, pausing for Enter",
	Args:  cobra.ExactArgs(1),
	RunE:  runStepCmd,
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

func runStepCmd(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	preset, opts, err := presetfile.Load(args[0])
	if err != nil {
		return err
	}

	eng := engine.New(utils.NewRealClock(), log)
	if err := eng.LoadPreset(preset, opts, nil); err != nil {
		return fmt.Errorf("load preset: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		snap, err := eng.Step()
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		if snap == nil {
			timeline := eng.GetTimeline()
			log.Info("halted: %s", timeline.HaltedReason)
			return nil
		}

		log.Info("step %d: phase=%s", snap.StepIndex, snap.Phase)
		fmt.Fprint(os.Stdout, "-- press Enter to continue --")
		_, _ = reader.ReadString('\n')
	}
}
