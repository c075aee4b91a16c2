package transport

import "sync"

// Transport is the byte link between host and receiver.
type Transport interface {
	// NextByte returns the next pending inbound byte. ok is false when
	// none is currently available; that is not end-of-stream.
	NextByte() (b byte, ok bool)
	// Send writes raw bytes back toward the host.
	Send(p []byte) error
	// DropPending discards any inbound bytes already buffered.
	DropPending()
}

// Loopback is an in-memory Transport. The test or demo harness queues
// inbound bytes with QueueBytes and inspects ACK traffic with Sent.
type Loopback struct {
	mu    sync.Mutex
	queue []byte
	sent  [][]byte
	drops int
}

// NewLoopback creates an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// QueueBytes appends host-side bytes to the inbound queue.
func (l *Loopback) QueueBytes(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, p...)
}

// NextByte pops one inbound byte if available.
func (l *Loopback) NextByte() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return 0, false
	}
	b := l.queue[0]
	l.queue = l.queue[1:]
	return b, true
}

// Send records an outbound payload.
func (l *Loopback) Send(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, append([]byte(nil), p...))
	return nil
}

// Sent returns a copy of all outbound payloads so far.
func (l *Loopback) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// DropPending discards the inbound queue.
func (l *Loopback) DropPending() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drops++
	l.queue = nil
}

// Drops returns how many times DropPending has been called.
func (l *Loopback) Drops() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drops
}

// Pending returns the number of inbound bytes still queued.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
