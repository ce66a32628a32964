package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// Version is set at build time
var Version = "dev"

var opts struct {
	configPath string
	inPort     string
	outPort    string
	oscHost    string
	oscPort    int
	listenAddr string
	mapping    string
	logLevel   string
	vinyl      bool
	headless   bool
	dryRun     bool
}

var rootCmd = &cobra.Command{
	Use:   "gopher-deck",
	Short: "Pioneer DDJ-400 controller mapping",
	Long: `GopherDeck drives a Pioneer DDJ-400 against a mixing engine over OSC.

It interprets the controller's pads, jog wheels, loop and Beat FX sections,
keeps the controller's LEDs in step with the engine, and sits in the system
tray until quit.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runDeck,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI ports",
	RunE:  listPorts,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "",
		"Log level: trace, debug, info, warn, error")

	rootCmd.Flags().StringVar(&opts.inPort, "in", "",
		"MIDI input port name or part of it")
	rootCmd.Flags().StringVar(&opts.outPort, "out", "",
		"MIDI output port name or part of it")
	rootCmd.Flags().StringVar(&opts.oscHost, "osc-host", "",
		"Engine OSC host")
	rootCmd.Flags().IntVar(&opts.oscPort, "osc-port", 0,
		"Engine OSC port")
	rootCmd.Flags().StringVar(&opts.listenAddr, "listen", "",
		"Local address for engine value updates")
	rootCmd.Flags().StringVarP(&opts.mapping, "mapping", "m", "",
		"YAML mapping file (default is the built-in DDJ-400 table)")
	rootCmd.Flags().BoolVar(&opts.vinyl, "vinyl", true,
		"Scratch when the jog wheel top is touched")
	rootCmd.Flags().BoolVar(&opts.headless, "headless", false,
		"Run without the system tray")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"Bridge to an in-memory engine on loopback instead of a mixing engine")

	rootCmd.AddCommand(portsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
