// Command atx-controller drives a host's front-panel power and reset headers
// from GPIO and serves a small HTTP API for them.
//
// Usage:
//
//	atx-controller serve -c /etc/atx-controller.yaml
//	atx-controller state -c /etc/atx-controller.yaml
//	atx-controller version
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "atx-controller",
	Short: "Remote power button for a PC's front-panel header",
	Long: `atx-controller emulates presses of a PC's power and reset buttons by
pulling front-panel header lines to ground through GPIO, and infers the
PC's power state from its power LED.

The HTTP API offers power on, power off (long press), reset, LED status,
a controller reboot, health and Prometheus metrics.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("atx-controller %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// setupLogging drops timestamps under systemd, whose journal adds its own.
func setupLogging(w io.Writer) {
	log.SetOutput(w)
	if os.Getenv("INVOCATION_ID") != "" {
		log.SetFlags(0)
		return
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lmsgprefix)
}

// componentLogger returns a logger sharing the standard logger's output and
// flags with its own prefix.
func componentLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.Flags())
}

func main() {
	setupLogging(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
