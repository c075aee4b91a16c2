package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
	"github.com/kholmogorov27/esp32-adalight/internal/protocol"
	"github.com/kholmogorov27/esp32-adalight/internal/strip"
	"github.com/kholmogorov27/esp32-adalight/internal/transport"
)

var (
	castPort     string
	castBaud     int
	castLeds     int
	castMagic    string
	castColor    string
	castRainbow  bool
	castFPS      int
	castFrames   int
	castLogLevel string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Stream test frames to a receiver",
	Example: `  # Solid red on 60 LEDs
  adalight-cast send --port /dev/ttyUSB0 --color ff0000

  # Scrolling rainbow at 60fps on a 144 LED strip
  adalight-cast send --port /dev/ttyUSB0 --leds 144 --rainbow --fps 60

  # Exactly one frame, then exit
  adalight-cast send --port /dev/ttyUSB0 --color 00ff00 --frames 1`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&castPort, "port", "", "serial port (required)")
	sendCmd.Flags().IntVar(&castBaud, "baud", 115200, "baud rate")
	sendCmd.Flags().IntVar(&castLeds, "leds", 60, "LED count to declare per frame")
	sendCmd.Flags().StringVar(&castMagic, "magic", "Ada", "frame marker bytes")
	sendCmd.Flags().StringVar(&castColor, "color", "ffffff", "solid color as RRGGBB hex")
	sendCmd.Flags().BoolVar(&castRainbow, "rainbow", false, "send a scrolling rainbow instead of a solid color")
	sendCmd.Flags().IntVar(&castFPS, "fps", 30, "frames per second")
	sendCmd.Flags().IntVar(&castFrames, "frames", 0, "number of frames to send (0 = until interrupted)")
	sendCmd.Flags().StringVar(&castLogLevel, "log-level", "", "log level: debug, info, warn, error (default silent)")
	_ = sendCmd.MarkFlagRequired("port")
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(castLogLevel); err != nil {
		return err
	}
	defer logging.Sync()

	if castLeds < 1 || castLeds > protocol.MaxPixelsPerFrame {
		return fmt.Errorf("--leds must be in [1, %d], got %d", protocol.MaxPixelsPerFrame, castLeds)
	}
	if castFPS < 1 {
		return fmt.Errorf("--fps must be positive, got %d", castFPS)
	}

	var solid []byte
	if !castRainbow {
		c, err := hex.DecodeString(castColor)
		if err != nil || len(c) != 3 {
			return fmt.Errorf("--color must be RRGGBB hex, got %q", castColor)
		}
		solid = c
	}

	tr, err := transport.OpenSerial(castPort, castBaud)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second / time.Duration(castFPS))
	defer ticker.Stop()

	rgb := make([]byte, 3*castLeds)
	sent := 0
	phase := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if castRainbow {
			for i := 0; i < castLeds; i++ {
				r, g, b := strip.Wheel(byte(i*256/castLeds + phase))
				rgb[3*i], rgb[3*i+1], rgb[3*i+2] = r, g, b
			}
			phase += 3
		} else {
			for i := 0; i < castLeds; i++ {
				copy(rgb[3*i:], solid)
			}
		}

		frame, err := protocol.EncodeFrame([]byte(castMagic), rgb)
		if err != nil {
			return err
		}
		if err := tr.Send(frame); err != nil {
			return err
		}
		drainAcks(tr)

		sent++
		if castFrames > 0 && sent >= castFrames {
			logging.Info("done sending", zap.Int("frames", sent))
			return nil
		}
	}
}

// drainAcks logs any liveness bytes the receiver has sent back.
func drainAcks(tr *transport.Serial) {
	var acks []byte
	for {
		b, ok := tr.NextByte()
		if !ok {
			break
		}
		acks = append(acks, b)
	}
	if len(acks) > 0 {
		logging.LogRawBytes("receiver ack", acks)
	}
}
