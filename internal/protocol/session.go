package protocol

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
)

// Mode identifies which part of the state machine currently owns input.
type Mode int

const (
	// Synchronizing means the session is scanning for the magic sequence
	// or consuming the three trailing header bytes.
	Synchronizing Mode = iota
	// ReceivingPayload means the session is accounting for declared
	// payload bytes.
	ReceivingPayload
)

// String returns a human-readable mode name
func (m Mode) String() string {
	switch m {
	case Synchronizing:
		return "synchronizing"
	case ReceivingPayload:
		return "receiving_payload"
	default:
		return "unknown"
	}
}

// Sink is the addressable LED output the session drives. Clear resets the
// working buffer without latching; Commit pushes the buffer to output.
type Sink interface {
	SetPixel(i int, r, g, b byte)
	Clear()
	Commit()
}

// Host is the outbound side of the transport: liveness ACKs go to Send, and
// DropPending discards any inbound bytes still buffered.
type Host interface {
	Send(p []byte) error
	DropPending()
}

// Params holds the session configuration, fixed at construction time.
type Params struct {
	// Magic is the frame marker byte sequence.
	Magic []byte
	// StripLen is the physical LED count. Frames declaring more pixels
	// still consume their full payload; the excess is discarded.
	StripLen int
	// Reversed flips the write order so pixel 0 lands at the far end.
	Reversed bool
	// Timeout is the inactivity window after which output is blanked.
	// Zero disables blanking entirely.
	Timeout time.Duration
	// Ack is the liveness payload sent back to the host.
	Ack []byte
	// AckInterval is the liveness cadence (1s for stock hosts).
	AckInterval time.Duration
	// DrainAfterFrame discards buffered inbound bytes after each commit,
	// matching hosts that expect a fresh start per frame.
	DrainAfterFrame bool
}

// Session is the Adalight receiver state machine. It is owned by a single
// goroutine: the polling loop calls HandleByte for every inbound byte and
// Idle for every iteration without one. No internal locking; mode and the
// counters are published atomically so Mode, FramesReceived and AcksSent
// may be read from monitor goroutines.
type Session struct {
	p    Params
	sink Sink
	host Host

	mode     atomic.Int32
	progress int // matched header bytes, in [0, len(magic)+3]
	hi, lo   byte

	remaining int     // declared payload bytes not yet consumed
	writePos  int     // next logical pixel position
	pixel     [3]byte // in-progress triple
	pixelIdx  int     // next channel slot within pixel

	frames   atomic.Uint64
	acks     atomic.Uint64
	lastByte time.Time
	lastAck  time.Time

	now func() time.Time // clock, swappable in tests
}

// NewSession creates a session in Synchronizing mode with progress 0.
// host may be nil when there is no outbound channel (replay, tests).
func NewSession(p Params, sink Sink, host Host) *Session {
	if p.AckInterval <= 0 {
		p.AckInterval = time.Second
	}
	s := &Session{
		p:    p,
		sink: sink,
		host: host,
		now:  time.Now,
	}
	s.lastByte = s.now()
	s.lastAck = s.now()
	return s
}

// Mode returns the currently active mode.
func (s *Session) Mode() Mode { return Mode(s.mode.Load()) }

// FramesReceived returns the number of frames committed so far.
func (s *Session) FramesReceived() uint64 { return s.frames.Load() }

// AcksSent returns the number of liveness ACKs delivered to the host.
func (s *Session) AcksSent() uint64 { return s.acks.Load() }

// HandleByte feeds one inbound byte to whichever mode owns input.
func (s *Session) HandleByte(b byte) {
	s.lastByte = s.now()
	switch s.Mode() {
	case Synchronizing:
		s.syncByte(b)
	case ReceivingPayload:
		s.payloadByte(b)
	}
}

// syncByte advances the magic scan and header consumption by one byte.
// Once the magic has fully matched, the next three bytes are taken
// positionally as count-high, count-low, checksum regardless of value.
func (s *Session) syncByte(b byte) {
	m := len(s.p.Magic)
	switch {
	case s.progress < m:
		if b == s.p.Magic[s.progress] {
			s.progress++
		} else {
			// Dropped byte; scanning resumes on the next one.
			s.progress = 0
		}
	case s.progress == m:
		s.hi = b
		s.progress++
	case s.progress == m+1:
		s.lo = b
		s.progress++
	default:
		s.checksumByte(b)
	}
}

// checksumByte validates the header and either opens a frame or discards it.
// Sync progress resets to zero on both paths.
func (s *Session) checksumByte(b byte) {
	defer func() { s.progress = 0 }()

	if b != Checksum(s.hi, s.lo) {
		logging.Debug("header checksum mismatch, resynchronizing",
			zap.Uint8("count_hi", s.hi),
			zap.Uint8("count_lo", s.lo),
			zap.Uint8("got", b),
			zap.Uint8("want", Checksum(s.hi, s.lo)),
		)
		return
	}

	s.remaining = PayloadLen(s.hi, s.lo)
	s.writePos = 0
	s.pixelIdx = 0
	// Fresh working buffer for the incoming frame. Must not latch: the
	// previously committed frame stays visible until this one completes.
	s.sink.Clear()
	s.mode.Store(int32(ReceivingPayload))

	logging.Debug("frame header accepted",
		zap.Int("pixels", s.remaining/BytesPerPixel),
		zap.Int("payload_bytes", s.remaining),
	)
}

// payloadByte consumes one declared payload byte. Every byte decrements the
// remaining count even when the strip is already full, so a frame declaring
// more pixels than physically present cannot desynchronize the stream.
func (s *Session) payloadByte(b byte) {
	if s.writePos < s.p.StripLen {
		s.pixel[s.pixelIdx] = b
		s.pixelIdx++
		if s.pixelIdx == BytesPerPixel {
			i := s.writePos
			if s.p.Reversed {
				i = s.p.StripLen - 1 - s.writePos
			}
			s.sink.SetPixel(i, s.pixel[0], s.pixel[1], s.pixel[2])
			s.pixelIdx = 0
			s.writePos++
		}
	}

	s.remaining--
	if s.remaining > 0 {
		return
	}

	s.sink.Commit()
	s.frames.Add(1)
	if s.p.DrainAfterFrame && s.host != nil {
		s.host.DropPending()
	}
	s.mode.Store(int32(Synchronizing))
	s.progress = 0

	logging.Debug("frame committed",
		zap.Uint64("frames", s.frames.Load()),
		zap.Int("pixels_written", s.writePos),
	)
}

// Idle runs the liveness and timeout watchdog. The polling loop calls it on
// every iteration where no inbound byte was available, never otherwise.
func (s *Session) Idle() {
	now := s.now()

	if now.Sub(s.lastAck) >= s.p.AckInterval {
		if s.host != nil {
			if err := s.host.Send(s.p.Ack); err != nil {
				logging.Warn("failed to send liveness ack", zap.Error(err))
			} else {
				s.acks.Add(1)
			}
		}
		s.lastAck = now
	}

	// Inactivity blank, checked on every idle iteration rather than only
	// within the ACK window. Resetting lastByte keeps it one-shot.
	if s.p.Timeout > 0 && now.Sub(s.lastByte) >= s.p.Timeout {
		s.sink.Clear()
		s.sink.Commit()
		s.mode.Store(int32(Synchronizing))
		s.progress = 0
		s.lastByte = now

		logging.Info("host inactive, strip blanked",
			zap.Duration("timeout", s.p.Timeout),
			zap.Uint64("frames", s.frames.Load()),
		)
	}
}
