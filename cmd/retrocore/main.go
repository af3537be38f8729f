// Command retrocore is the reference frontend for the retrocore
// emulation core: it resolves a ROM file through registry.Load, then
// either drives it through an ebiten video/audio/input loop or drops
// into a styled debug console, mirroring the split the teacher's
// gintendo.go made between ebiten.RunGame and Bus.BIOS.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"retrocore/registry"
)

var (
	scale     int
	debug     bool
	stateIn   string
	batteryIn string
)

func main() {
	root := &cobra.Command{
		Use:   "retrocore <rom>",
		Short: "Run a cartridge image through its emulated console core",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().IntVar(&scale, "scale", 2, "integer window scale factor")
	root.Flags().BoolVar(&debug, "debug", false, "use the styled debug console instead of the video frontend")
	root.Flags().StringVar(&stateIn, "load-state", "", "save-state file to restore before running")
	root.Flags().StringVar(&batteryIn, "load-battery", "", "battery RAM (.srm) file to restore before running")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]
	sys, err := registry.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	if batteryIn != "" {
		data, err := os.ReadFile(batteryIn)
		if err != nil {
			return fmt.Errorf("loading battery file: %w", err)
		}
		if bb, ok := sys.(batteryBacked); ok {
			bb.LoadBattery(data)
		}
	}

	if stateIn != "" {
		data, err := registry.LoadStateFromFile(stateIn)
		if err != nil {
			return fmt.Errorf("loading save state: %w", err)
		}
		if err := sys.SetState(data); err != nil {
			return fmt.Errorf("restoring save state: %w", err)
		}
	}

	if debug {
		return runDebugConsole(sys, path)
	}
	return runVideo(sys, path, scale)
}
