package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kholmogorov27/esp32-adalight/internal/config"
	"github.com/kholmogorov27/esp32-adalight/internal/logging"
	"github.com/kholmogorov27/esp32-adalight/internal/preview"
	"github.com/kholmogorov27/esp32-adalight/internal/protocol"
	"github.com/kholmogorov27/esp32-adalight/internal/receiver"
	"github.com/kholmogorov27/esp32-adalight/internal/server"
	"github.com/kholmogorov27/esp32-adalight/internal/strip"
	"github.com/kholmogorov27/esp32-adalight/internal/transport"
)

var (
	cfgPath      string
	flagPort     string
	flagBaud     int
	flagLeds     int
	logLevel     string
	flagLoopback bool
	flagOutput   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the receiver headless",
	Long: `Run the Adalight receiver until interrupted.

Bytes are polled from the serial port one at a time; complete frames latch
into the strip buffer, and the strip is blanked if the host goes quiet for
longer than the configured timeout.`,
	Example: `  # Stock Adalight on the default port
  adalightd run

  # Explicit port and strip length, verbose protocol logging
  adalightd run --port /dev/ttyACM0 --leds 144 --log-level debug

  # No hardware attached: feed a built-in rainbow through the loopback
  adalightd run --loopback`,
	RunE: runReceiver,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run the receiver with a live terminal preview",
	Long: `Run the receiver and render committed frames in the terminal,
one colored block per LED. Useful for bring-up before LEDs are wired, or
for checking what a host is actually sending.`,
	Example: `  # Watch what the host writes to /dev/ttyUSB0
  adalightd preview

  # No hardware at all
  adalightd preview --loopback`,
	RunE: runPreview,
}

func init() {
	for _, c := range []*cobra.Command{runCmd, previewCmd} {
		c.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
		c.Flags().StringVar(&flagPort, "port", "", "serial port (overrides config)")
		c.Flags().IntVar(&flagBaud, "baud", 0, "baud rate (overrides config)")
		c.Flags().IntVar(&flagLeds, "leds", 0, "LED count (overrides config)")
		c.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default silent)")
		c.Flags().BoolVar(&flagLoopback, "loopback", false, "feed a built-in rainbow instead of opening a serial port")
	}
	runCmd.Flags().StringVar(&flagOutput, "output", "", "write committed frames as raw RGB to this file or pipe")
}

// parts bundles everything a running receiver needs.
type parts struct {
	cfg     *config.Config
	buf     *strip.Buffer
	session *protocol.Session
	tr      transport.Transport
	source  string
	cleanup []func()
}

func (p *parts) close() {
	for i := len(p.cleanup) - 1; i >= 0; i-- {
		p.cleanup[i]()
	}
}

// assemble loads config, applies flag overrides and wires transport, sink
// and session together. The monitor server, when enabled, is started on its
// own goroutine bound to ctx.
func assemble(ctx context.Context) (*parts, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if flagPort != "" {
		cfg.Serial.Port = flagPort
	}
	if flagBaud > 0 {
		cfg.Serial.Baud = flagBaud
	}
	if flagLeds > 0 {
		cfg.Strip.Length = flagLeds
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &parts{cfg: cfg, buf: strip.NewBuffer(cfg.Strip.Length)}

	var sink protocol.Sink = p.buf
	if flagOutput != "" {
		f, err := os.OpenFile(flagOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open output %s: %w", flagOutput, err)
		}
		p.cleanup = append(p.cleanup, func() { _ = f.Close() })
		sink = strip.NewWriterSink(p.buf, f)
	}

	if flagLoopback {
		lb := transport.NewLoopback()
		go feedDemoFrames(ctx, lb, cfg.MagicBytes(), cfg.Strip.Length)
		p.tr = lb
		p.source = "loopback"
	} else {
		s, err := transport.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, err
		}
		p.cleanup = append(p.cleanup, func() { _ = s.Close() })
		p.tr = s
		p.source = cfg.Serial.Port
	}

	p.session = protocol.NewSession(protocol.Params{
		Magic:           cfg.MagicBytes(),
		StripLen:        cfg.Strip.Length,
		Reversed:        cfg.Strip.Reversed,
		Timeout:         cfg.Timeout(),
		Ack:             cfg.AckBytes(),
		AckInterval:     cfg.AckInterval(),
		DrainAfterFrame: cfg.Protocol.DrainAfterFrame,
	}, sink, p.tr)

	if cfg.Monitor.Enabled {
		mon := server.New(server.Config{
			Listen: cfg.Monitor.Listen,
			MDNS:   cfg.Monitor.MDNS,
		}, p.buf, p.session)
		go func() {
			if err := mon.Start(ctx); err != nil {
				logging.Error("monitor server exited", zap.Error(err))
			}
		}()
	}

	return p, nil
}

func runReceiver(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := assemble(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	return receiver.New(p.session, p.tr).Run(ctx)
}

func runPreview(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("preview requires a terminal; use 'adalightd run' instead")
	}
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := assemble(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	go func() {
		_ = receiver.New(p.session, p.tr).Run(ctx)
	}()

	// The TUI owns the foreground; quitting it stops the receiver too.
	err = preview.Run(p.buf, p.source, p.session)
	cancel()
	return err
}

// feedDemoFrames queues a scrolling rainbow through the loopback at ~30fps.
func feedDemoFrames(ctx context.Context, lb *transport.Loopback, magic []byte, leds int) {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	phase := 0
	rgb := make([]byte, 3*leds)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for i := 0; i < leds; i++ {
			r, g, b := strip.Wheel(byte(i*256/leds + phase))
			rgb[3*i], rgb[3*i+1], rgb[3*i+2] = r, g, b
		}
		frame, err := protocol.EncodeFrame(magic, rgb)
		if err != nil {
			logging.Error("failed to encode demo frame", zap.Error(err))
			return
		}
		lb.QueueBytes(frame)
		phase += 3
	}
}
