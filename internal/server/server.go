package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
	"github.com/kholmogorov27/esp32-adalight/internal/protocol"
	"github.com/kholmogorov27/esp32-adalight/internal/strip"
)

const (
	// ServiceType is the mDNS service type the monitor advertises as.
	ServiceType = "_adalight._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	shutdownGrace = 3 * time.Second
)

// Config holds the monitor server settings.
type Config struct {
	// Listen is the TCP address to bind, e.g. ":8420".
	Listen string
	// MDNS enables service advertisement on the local network.
	MDNS bool
	// Instance is the mDNS instance name; defaults to "adalight".
	Instance string
}

// Stats reports live receiver state for the health endpoint. Implementations
// must be safe to call from the serving goroutines.
type Stats interface {
	Mode() protocol.Mode
	FramesReceived() uint64
}

// Server serves strip state over HTTP and WebSocket.
type Server struct {
	cfg   Config
	buf   *strip.Buffer
	stats Stats
	start time.Time
}

// New creates a monitor server reading from buf. stats may be nil, in which
// case the health endpoint reports commit counts only.
func New(cfg Config, buf *strip.Buffer, stats Stats) *Server {
	if cfg.Instance == "" {
		cfg.Instance = "adalight"
	}
	return &Server{
		cfg:   cfg,
		buf:   buf,
		stats: stats,
		start: time.Now(),
	}
}

// Handler returns the HTTP handler; exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// Start binds the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to bind monitor listener on %s: %w", s.cfg.Listen, err)
	}

	if s.cfg.MDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		txt := []string{fmt.Sprintf("leds=%d", s.buf.Len())}
		mdns, err := zeroconf.Register(s.cfg.Instance, ServiceType, ServiceDomain, port, txt, nil)
		if err != nil {
			// Advertisement is best effort; the monitor still works by address.
			logging.Warn("failed to register mDNS service", zap.Error(err))
		} else {
			defer mdns.Shutdown()
			logging.Info("mDNS service registered",
				zap.String("instance", s.cfg.Instance),
				zap.String("service", ServiceType),
				zap.Int("port", port),
			)
		}
	}

	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("monitor server listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server failed: %w", err)
	}
	return nil
}

type healthzResponse struct {
	Status   string `json:"status"`
	Mode     string `json:"mode,omitempty"`
	Frames   uint64 `json:"frames"`
	LEDs     int    `json:"leds"`
	UptimeMs int64  `json:"uptime_ms"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Status:   "ok",
		LEDs:     s.buf.Len(),
		UptimeMs: time.Since(s.start).Milliseconds(),
	}
	if s.stats != nil {
		resp.Mode = s.stats.Mode().String()
		resp.Frames = s.stats.FramesReceived()
	} else {
		resp.Frames = s.buf.Snapshot().Seq
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Debug("failed to write healthz response", zap.Error(err))
	}
}
