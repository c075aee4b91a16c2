package server

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
	"github.com/kholmogorov27/esp32-adalight/internal/strip"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The monitor is LAN tooling; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frameMessage is the JSON shape pushed to monitor clients per commit.
type frameMessage struct {
	Seq    uint64 `json:"seq"`
	Count  int    `json:"count"`
	Pixels string `json:"pixels"` // hex-encoded R,G,B triples
}

func newFrameMessage(f strip.Frame) frameMessage {
	return frameMessage{
		Seq:    f.Seq,
		Count:  len(f.Pixels) / 3,
		Pixels: hex.EncodeToString(f.Pixels),
	}
}

// handleWebSocket streams committed frames to one client until it leaves.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	logging.Info("monitor client connected", zap.String("remote_addr", r.RemoteAddr))
	defer logging.Info("monitor client disconnected", zap.String("remote_addr", r.RemoteAddr))

	frames, cancel := s.buf.Subscribe()
	defer cancel()

	// Reader goroutine: we never expect client messages, but reading is how
	// close frames surface.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Current state first, so a fresh client is never blank until the next
	// commit.
	if err := s.writeFrame(conn, s.buf.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := s.writeFrame(conn, frame); err != nil {
				logging.Debug("failed to push frame to monitor client",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f strip.Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(newFrameMessage(f))
}
