// Adalightd is the Adalight receiver daemon.
//
// It reads the Adalight serial stream from a host (Prismatik, Hyperion,
// ambilight scripts), applies frames to an LED strip buffer, answers with
// periodic liveness ACKs, and blanks the strip when the host goes quiet.
// An optional WebSocket monitor exposes the committed strip state, and the
// preview subcommand renders it live in the terminal.
//
// Usage:
//
//	adalightd run [flags]
//	adalightd preview [flags]
//
// See 'adalightd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kholmogorov27/esp32-adalight/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adalightd",
	Short: "Adalight Receiver Daemon",
	Long: `A host-side Adalight receiver.

Consumes the Adalight serial framing protocol (magic word, checksummed
header, raw RGB payload), drives an LED strip buffer, and fails safe by
blanking output when the host stops sending.

Use 'adalightd run' for headless operation or 'adalightd preview' to watch
the strip in the terminal. For sending test frames from the host side, use
the separate 'adalight-cast' utility.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adalightd %s\n", version.Full())
	},
}
