package strip

import (
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
)

// Frame is an immutable snapshot of a committed strip state.
type Frame struct {
	// Seq increments by one per commit, starting at 1.
	Seq uint64
	// Pixels holds 3 bytes per LED in R,G,B order.
	Pixels []byte
}

// Buffer is an in-memory LED sink with a working buffer and a latched
// snapshot. Writes only become visible through Snapshot and subscriber
// channels once Commit is called.
//
// Buffer is safe for concurrent use: the receiver loop writes while monitor
// and preview goroutines read snapshots.
type Buffer struct {
	mu      sync.Mutex
	working []byte
	latched []byte
	seq     uint64
	subs    map[int]chan Frame
	nextID  int
}

// NewBuffer creates a buffer for n LEDs, all black and unlatched.
func NewBuffer(n int) *Buffer {
	return &Buffer{
		working: make([]byte, 3*n),
		latched: make([]byte, 3*n),
		subs:    make(map[int]chan Frame),
	}
}

// Len returns the physical LED count.
func (s *Buffer) Len() int {
	return len(s.latched) / 3
}

// SetPixel writes one RGB triple into the working buffer. Out-of-range
// positions are ignored.
func (s *Buffer) SetPixel(i int, r, g, b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || 3*i+2 >= len(s.working) {
		return
	}
	s.working[3*i] = r
	s.working[3*i+1] = g
	s.working[3*i+2] = b
}

// Clear zeroes the working buffer without latching. The previously committed
// frame stays visible.
func (s *Buffer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.working {
		s.working[i] = 0
	}
}

// Commit latches the working buffer and notifies subscribers. Slow
// subscribers drop frames rather than stalling the receiver loop.
func (s *Buffer) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.latched, s.working)
	s.seq++
	frame := Frame{Seq: s.seq, Pixels: append([]byte(nil), s.latched...)}
	// Fan-out stays under mu: cancel closes channels under the same lock, so
	// a send can never race a close. The sends are non-blocking.
	for _, ch := range s.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Snapshot returns a copy of the latched frame.
func (s *Buffer) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Frame{Seq: s.seq, Pixels: append([]byte(nil), s.latched...)}
}

// Subscribe registers a listener for committed frames. The returned cancel
// function unregisters it and closes the channel.
func (s *Buffer) Subscribe() (<-chan Frame, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Frame, 4)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// WriterSink wraps a Buffer and additionally writes every committed frame as
// raw RGB bytes to an external writer (typically a pipe into an LED driver
// process).
type WriterSink struct {
	*Buffer
	w io.Writer
}

// NewWriterSink creates a sink that mirrors commits of buf into w.
func NewWriterSink(buf *Buffer, w io.Writer) *WriterSink {
	return &WriterSink{Buffer: buf, w: w}
}

// Commit latches the frame and forwards it. Write failures are logged and
// swallowed; output errors must not break protocol accounting.
func (s *WriterSink) Commit() {
	s.Buffer.Commit()
	frame := s.Buffer.Snapshot()
	if _, err := s.w.Write(frame.Pixels); err != nil {
		logging.Warn("failed to write frame to output",
			zap.Uint64("seq", frame.Seq),
			zap.Error(err),
		)
	}
}
