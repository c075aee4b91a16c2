package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
)

// rxBufferSize bounds how many inbound bytes can pile up between polls.
// At 115200 baud that is well over 300ms of traffic.
const rxBufferSize = 4096

// Serial is a Transport backed by a physical serial port. A background
// goroutine moves bytes from the (blocking) port read into a buffered
// channel so NextByte never blocks the polling loop.
type Serial struct {
	port serial.Port
	name string
	rx   chan byte

	closeOnce sync.Once
	closeErr  error

	mu       sync.Mutex
	overflow uint64
}

// OpenSerial opens the named port at the given baud rate, 8N1.
func OpenSerial(name string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	s := &Serial{
		port: port,
		name: name,
		rx:   make(chan byte, rxBufferSize),
	}
	go s.readLoop()

	logging.Info("serial port opened",
		zap.String("port", name),
		zap.Int("baud", baud),
	)
	return s, nil
}

// readLoop pumps port reads into the rx channel until the port closes.
func (s *Serial) readLoop() {
	buf := make([]byte, 512)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			logging.Debug("serial read loop ending",
				zap.String("port", s.name),
				zap.Error(err),
			)
			return
		}
		for _, b := range buf[:n] {
			select {
			case s.rx <- b:
			default:
				// Poller is behind; the byte is lost and the protocol
				// resynchronizes on the next frame marker.
				s.mu.Lock()
				s.overflow++
				if s.overflow%1000 == 1 {
					logging.Warn("serial rx buffer overflow, dropping bytes",
						zap.String("port", s.name),
						zap.Uint64("dropped_total", s.overflow),
					)
				}
				s.mu.Unlock()
			}
		}
	}
}

// NextByte pops one buffered inbound byte if available. Never blocks.
func (s *Serial) NextByte() (byte, bool) {
	select {
	case b := <-s.rx:
		return b, true
	default:
		return 0, false
	}
}

// Send writes raw bytes to the port.
func (s *Serial) Send(p []byte) error {
	if _, err := s.port.Write(p); err != nil {
		return fmt.Errorf("failed to write to serial port %s: %w", s.name, err)
	}
	return nil
}

// DropPending discards both the channel backlog and the driver's own
// input buffer.
func (s *Serial) DropPending() {
	for {
		select {
		case <-s.rx:
		default:
			if err := s.port.ResetInputBuffer(); err != nil {
				logging.Debug("failed to reset serial input buffer",
					zap.String("port", s.name),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// Close closes the port; the read loop exits on the resulting read error.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}
