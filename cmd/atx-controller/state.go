package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/atx-controller/internal/gpio"
	"github.com/sweeney/atx-controller/internal/logic"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the power LED level and inferred power state, then exit",
	Long: `Read the power LED once and print it together with the power state
the controller would derive from it at boot. Control lines are requested
as floating inputs and released again; nothing is driven.`,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringP("config", "c", "", "path to YAML config file (defaults built in)")
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	chip, err := gpio.Open(cfg.GPIO.Chip, cfg.GPIO.PowerLED, cfg.GPIO.LEDActiveLow, cfg.ControlOffsets())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	lit, err := chip.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatState(lit, time.Now()))
	return nil
}

// formatState renders one LED reading and the power state a seeded boot
// would derive from it.
func formatState(lit bool, now time.Time) string {
	tracker := logic.NewTracker(0)
	tracker.Seed(lit, now)
	power := logic.NewPowerMachine()
	power.Derive(tracker.Snapshot(), now)
	return fmt.Sprintf("LED: %s, power: %s", logic.LEDStateText(lit), power.Status().State)
}
