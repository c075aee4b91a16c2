// Adalight-cast is a host-side test sender for Adalight receivers.
//
// It builds well-formed Adalight frames (magic word, checksummed header,
// raw RGB payload) and streams them to a serial port: a solid color or a
// scrolling rainbow at a fixed frame rate. Useful for exercising a receiver
// without running a full ambilight host.
//
// Usage:
//
//	adalight-cast send --port /dev/ttyUSB0 [flags]
//
// See 'adalight-cast send --help' for available options.
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
	Use:   "adalight-cast",
	Short: "Adalight Test Sender",
	Long: `A host-side utility that streams Adalight frames to a receiver.

Sends either a solid color or a scrolling rainbow test pattern, framed
exactly the way ambilight hosts frame their output. Incoming liveness ACKs
from the receiver are logged at debug level.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adalight-cast %s\n", version.Full())
	},
}
