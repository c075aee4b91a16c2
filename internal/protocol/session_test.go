package protocol

import (
	"bytes"
	"testing"
	"time"
)

// sinkOp records one call into the output sink.
type sinkOp struct {
	kind    string // "set", "clear", "commit"
	i       int
	r, g, b byte
}

type recordingSink struct {
	ops []sinkOp
}

func (s *recordingSink) SetPixel(i int, r, g, b byte) {
	s.ops = append(s.ops, sinkOp{kind: "set", i: i, r: r, g: g, b: b})
}

func (s *recordingSink) Clear()  { s.ops = append(s.ops, sinkOp{kind: "clear"}) }
func (s *recordingSink) Commit() { s.ops = append(s.ops, sinkOp{kind: "commit"}) }

func (s *recordingSink) commits() int {
	n := 0
	for _, op := range s.ops {
		if op.kind == "commit" {
			n++
		}
	}
	return n
}

func (s *recordingSink) pixels() []sinkOp {
	var out []sinkOp
	for _, op := range s.ops {
		if op.kind == "set" {
			out = append(out, op)
		}
	}
	return out
}

type fakeHost struct {
	sent  [][]byte
	drops int
}

func (h *fakeHost) Send(p []byte) error {
	h.sent = append(h.sent, append([]byte(nil), p...))
	return nil
}

func (h *fakeHost) DropPending() { h.drops++ }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(p Params) (*Session, *recordingSink, *fakeHost, *fakeClock) {
	sink := &recordingSink{}
	host := &fakeHost{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewSession(p, sink, host)
	s.now = clock.now
	s.lastByte = clock.t
	s.lastAck = clock.t
	return s, sink, host, clock
}

func defaultParams() Params {
	return Params{
		Magic:       DefaultMagic,
		StripLen:    4,
		Timeout:     5 * time.Second,
		Ack:         DefaultAck,
		AckInterval: time.Second,
	}
}

func feed(s *Session, data []byte) {
	for _, b := range data {
		s.HandleByte(b)
	}
}

func TestSessionWellFormedFrame(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		rgb    []byte
		want   []sinkOp
	}{
		{
			name:   "two pixels in order",
			params: defaultParams(),
			rgb:    []byte{0xff, 0x00, 0x00, 0x00, 0xff, 0x00},
			want: []sinkOp{
				{kind: "set", i: 0, r: 0xff},
				{kind: "set", i: 1, g: 0xff},
			},
		},
		{
			name: "reversed output",
			params: func() Params {
				p := defaultParams()
				p.Reversed = true
				return p
			}(),
			rgb: []byte{0xff, 0x00, 0x00, 0x00, 0xff, 0x00},
			want: []sinkOp{
				{kind: "set", i: 3, r: 0xff},
				{kind: "set", i: 2, g: 0xff},
			},
		},
		{
			name:   "count field zero means one pixel",
			params: defaultParams(),
			rgb:    []byte{0x01, 0x02, 0x03},
			want: []sinkOp{
				{kind: "set", i: 0, r: 0x01, g: 0x02, b: 0x03},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink, _, _ := newTestSession(tt.params)

			frame, err := EncodeFrame(tt.params.Magic, tt.rgb)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			feed(s, frame)

			got := sink.pixels()
			if len(got) != len(tt.want) {
				t.Fatalf("SetPixel calls = %d, want %d (ops: %v)", len(got), len(tt.want), sink.ops)
			}
			for i, op := range got {
				w := tt.want[i]
				if op.i != w.i || op.r != w.r || op.g != w.g || op.b != w.b {
					t.Errorf("pixel %d = {i=%d %d,%d,%d}, want {i=%d %d,%d,%d}",
						i, op.i, op.r, op.g, op.b, w.i, w.r, w.g, w.b)
				}
			}
			if sink.commits() != 1 {
				t.Errorf("commits = %d, want 1", sink.commits())
			}
			// Commit must be the final sink operation.
			if sink.ops[len(sink.ops)-1].kind != "commit" {
				t.Errorf("last sink op = %q, want commit", sink.ops[len(sink.ops)-1].kind)
			}
			if s.Mode() != Synchronizing {
				t.Errorf("mode after frame = %v, want Synchronizing", s.Mode())
			}
			if s.FramesReceived() != 1 {
				t.Errorf("frames = %d, want 1", s.FramesReceived())
			}
		})
	}
}

func TestSessionClearPrecedesPayloadWithoutCommit(t *testing.T) {
	s, sink, _, _ := newTestSession(defaultParams())

	// Header only: working buffer must be cleared but nothing latched.
	feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x01, 0x54})

	if s.Mode() != ReceivingPayload {
		t.Fatalf("mode = %v, want ReceivingPayload", s.Mode())
	}
	if len(sink.ops) != 1 || sink.ops[0].kind != "clear" {
		t.Errorf("sink ops after header = %v, want exactly one clear", sink.ops)
	}
	if sink.commits() != 0 {
		t.Errorf("commits after header = %d, want 0", sink.commits())
	}
}

func TestSessionChecksumMismatchResynchronizes(t *testing.T) {
	s, sink, _, _ := newTestSession(defaultParams())

	// Header with a corrupt checksum, followed by a valid one-pixel frame.
	feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x01, 0x99})
	if s.Mode() != Synchronizing {
		t.Fatalf("mode after bad checksum = %v, want Synchronizing", s.Mode())
	}
	if len(sink.ops) != 0 {
		t.Fatalf("sink touched on checksum mismatch: %v", sink.ops)
	}

	feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x00, 0x55, 0x0a, 0x0b, 0x0c})
	if got := sink.pixels(); len(got) != 1 || got[0] != (sinkOp{kind: "set", i: 0, r: 0x0a, g: 0x0b, b: 0x0c}) {
		t.Errorf("pixels after recovery = %v, want one exact triple", got)
	}
	if sink.commits() != 1 {
		t.Errorf("commits = %d, want 1", sink.commits())
	}
}

func TestSessionNoiseBeforeFrame(t *testing.T) {
	tests := []struct {
		name  string
		noise []byte
	}{
		{name: "random garbage", noise: []byte{0x00, 0xff, 0x13, 0x37, 0x7e}},
		{name: "partial magic then garbage", noise: []byte{0x41, 0x64, 0x00}},
		{name: "no noise", noise: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink, _, _ := newTestSession(defaultParams())

			feed(s, tt.noise)
			frame, _ := EncodeFrame(DefaultMagic, []byte{0x01, 0x02, 0x03})
			feed(s, frame)

			if sink.commits() != 1 {
				t.Errorf("commits = %d, want 1 (noise %v prevented parsing)", sink.commits(), tt.noise)
			}
		})
	}
}

func TestSessionNoiseEndingInMagicPrefix(t *testing.T) {
	// Noise that leaves a partial magic match open can cost the frame that
	// follows it: the drop-on-mismatch policy never re-examines the failing
	// byte. A continuously streaming host recovers on the next frame.
	s, sink, _, _ := newTestSession(defaultParams())

	feed(s, []byte{0x41}) // stray 'A' leaves progress mid-magic
	frame, _ := EncodeFrame(DefaultMagic, []byte{0x01, 0x02, 0x03})
	feed(s, frame)
	feed(s, frame)

	if sink.commits() != 1 {
		t.Errorf("commits = %d, want 1 (first frame lost to the stray prefix, second parses)", sink.commits())
	}
}

func TestSessionChecksumProperty(t *testing.T) {
	// For any header, the one byte equal to hi^lo^0x55 opens a frame; any
	// other value resets synchronization.
	for _, hi := range []byte{0x00, 0x01, 0x80, 0xff} {
		for _, lo := range []byte{0x00, 0x37, 0xff} {
			valid := Checksum(hi, lo)
			for _, chk := range []byte{valid, valid ^ 0x01, valid ^ 0xff} {
				s, _, _, _ := newTestSession(defaultParams())
				feed(s, []byte{0x41, 0x64, 0x61, hi, lo, chk})

				wantMode := Synchronizing
				if chk == valid {
					wantMode = ReceivingPayload
				}
				if s.Mode() != wantMode {
					t.Errorf("hi=0x%02x lo=0x%02x chk=0x%02x: mode = %v, want %v",
						hi, lo, chk, s.Mode(), wantMode)
				}
			}
		}
	}
}

func TestSessionFailedMagicByteIsDropped(t *testing.T) {
	// The byte that breaks a partial magic match is discarded, even when it
	// equals the first magic byte. Sync recovers on the next full marker.
	s, sink, _, _ := newTestSession(defaultParams())

	// "Ad" then 'A' drops the 'A'; the following full frame still parses.
	feed(s, []byte{0x41, 0x64, 0x41})
	frame, _ := EncodeFrame(DefaultMagic, []byte{0x01, 0x02, 0x03})
	feed(s, frame)

	if sink.commits() != 1 {
		t.Errorf("commits = %d, want 1", sink.commits())
	}
}

func TestSessionHeaderBytesNotReinterpretedAsMagic(t *testing.T) {
	// Count and checksum bytes overlapping magic values must be consumed
	// positionally, not fed back into the magic scan.
	s, _, _, _ := newTestSession(Params{
		Magic:       []byte{0x41, 0x64, 0x61},
		StripLen:    30000,
		AckInterval: time.Second,
	})

	// Field 0x4164 declares 16741 pixels; checksum 0x41^0x64^0x55 = 0x70.
	feed(s, []byte{0x41, 0x64, 0x61, 0x41, 0x64, 0x70})

	if s.Mode() != ReceivingPayload {
		t.Fatalf("mode = %v, want ReceivingPayload", s.Mode())
	}
	if want := PayloadLen(0x41, 0x64); s.remaining != want {
		t.Errorf("remaining = %d, want %d", s.remaining, want)
	}
}

func TestSessionExcessDeclaredLength(t *testing.T) {
	// Declared 4 pixels against a 2-pixel strip: only 2 SetPixel calls, but
	// all 12 payload bytes are consumed before returning to sync mode.
	p := defaultParams()
	p.StripLen = 2
	s, sink, _, _ := newTestSession(p)

	rgb := []byte{
		0x01, 0x02, 0x03,
		0x04, 0x05, 0x06,
		0x07, 0x08, 0x09,
		0x0a, 0x0b, 0x0c,
	}
	frame, _ := EncodeFrame(DefaultMagic, rgb)
	feed(s, frame)

	if got := sink.pixels(); len(got) != 2 {
		t.Fatalf("SetPixel calls = %d, want 2", len(got))
	}
	if sink.commits() != 1 {
		t.Errorf("commits = %d, want 1", sink.commits())
	}
	if s.Mode() != Synchronizing {
		t.Errorf("mode = %v, want Synchronizing", s.Mode())
	}

	// The stream is still in sync: the next frame parses cleanly.
	frame2, _ := EncodeFrame(DefaultMagic, []byte{0x11, 0x12, 0x13})
	feed(s, frame2)
	if sink.commits() != 2 {
		t.Errorf("commits after second frame = %d, want 2", sink.commits())
	}
}

func TestSessionPartialTripleAcrossIterations(t *testing.T) {
	// Channel bytes of one triple may arrive on separate loop iterations.
	s, sink, _, _ := newTestSession(defaultParams())

	feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x00, 0x55})
	feed(s, []byte{0xff})
	feed(s, []byte{0x80})
	if len(sink.pixels()) != 0 {
		t.Fatalf("triple latched before third byte: %v", sink.ops)
	}
	feed(s, []byte{0x40})

	got := sink.pixels()
	if len(got) != 1 || got[0] != (sinkOp{kind: "set", i: 0, r: 0xff, g: 0x80, b: 0x40}) {
		t.Errorf("pixels = %v, want one triple ff/80/40 at 0", got)
	}
}

func TestSessionAdaScenario(t *testing.T) {
	// Stream 41 64 61 00 01 54 ff 00 00: field value 1 declares 2 pixels
	// (6 payload bytes); after one triple the frame stays open.
	s, sink, _, _ := newTestSession(defaultParams())

	feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x01, 0x54, 0xff, 0x00, 0x00})

	if s.Mode() != ReceivingPayload {
		t.Fatalf("mode = %v, want ReceivingPayload", s.Mode())
	}
	if s.remaining != 3 {
		t.Errorf("remaining = %d, want 3", s.remaining)
	}
	if got := sink.pixels(); len(got) != 1 || got[0] != (sinkOp{kind: "set", i: 0, r: 0xff}) {
		t.Errorf("pixels = %v, want single red at 0", got)
	}
	if sink.commits() != 0 {
		t.Errorf("commits = %d, want 0 (frame still open)", sink.commits())
	}

	feed(s, []byte{0x00, 0xff, 0x00})
	if sink.commits() != 1 {
		t.Errorf("commits after closing triple = %d, want 1", sink.commits())
	}
}

func TestSessionLivenessCadence(t *testing.T) {
	s, _, host, clock := newTestSession(defaultParams())

	// Ten simulated seconds of idle polling at 100ms steps.
	for i := 0; i < 100; i++ {
		clock.advance(100 * time.Millisecond)
		s.Idle()
	}

	// ACKs keep flowing indefinitely, one per elapsed second.
	if len(host.sent) != 10 {
		t.Errorf("acks sent = %d, want 10", len(host.sent))
	}
	if s.AcksSent() != 10 {
		t.Errorf("AcksSent() = %d, want 10", s.AcksSent())
	}
	for _, p := range host.sent {
		if !bytes.Equal(p, DefaultAck) {
			t.Errorf("ack payload = % x, want % x", p, DefaultAck)
		}
	}
}

func TestSessionInactivityTimeout(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		idleFor    time.Duration
		wantBlanks int
	}{
		{name: "fires once after threshold", timeout: 2 * time.Second, idleFor: 3 * time.Second, wantBlanks: 1},
		{name: "re-arms after another full window", timeout: 2 * time.Second, idleFor: 5 * time.Second, wantBlanks: 2},
		{name: "below threshold", timeout: 5 * time.Second, idleFor: 3 * time.Second, wantBlanks: 0},
		{name: "zero threshold disables blanking", timeout: 0, idleFor: 60 * time.Second, wantBlanks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			p.Timeout = tt.timeout
			s, sink, _, clock := newTestSession(p)

			// Open a payload so the reset is observable.
			feed(s, []byte{0x41, 0x64, 0x61, 0x00, 0x01, 0x54, 0xff})
			sink.ops = nil

			steps := int(tt.idleFor / (100 * time.Millisecond))
			for i := 0; i < steps; i++ {
				clock.advance(100 * time.Millisecond)
				s.Idle()
			}

			if got := sink.commits(); got != tt.wantBlanks {
				t.Errorf("blank commits = %d, want %d", got, tt.wantBlanks)
			}
			if tt.wantBlanks > 0 {
				if s.Mode() != Synchronizing {
					t.Errorf("mode after timeout = %v, want Synchronizing", s.Mode())
				}
				if s.progress != 0 {
					t.Errorf("progress after timeout = %d, want 0", s.progress)
				}
			}
			if tt.timeout == 0 && s.Mode() != ReceivingPayload {
				t.Errorf("mode with disabled timeout = %v, want ReceivingPayload", s.Mode())
			}
		})
	}
}

func TestSessionTimeoutBlankIsOneShot(t *testing.T) {
	p := defaultParams()
	p.Timeout = time.Second
	s, sink, _, clock := newTestSession(p)

	clock.advance(2 * time.Second)
	s.Idle()
	first := sink.commits()

	// Further idle iterations inside the next window must not blank again.
	for i := 0; i < 5; i++ {
		clock.advance(100 * time.Millisecond)
		s.Idle()
	}

	if first != 1 || sink.commits() != 1 {
		t.Errorf("blank commits = %d after first, %d after extra idles; want 1 and 1", first, sink.commits())
	}
}

func TestSessionDrainAfterFrame(t *testing.T) {
	p := defaultParams()
	p.DrainAfterFrame = true
	s, _, host, _ := newTestSession(p)

	frame, _ := EncodeFrame(DefaultMagic, []byte{0x01, 0x02, 0x03})
	feed(s, frame)
	feed(s, frame)

	if host.drops != 2 {
		t.Errorf("DropPending calls = %d, want 2", host.drops)
	}
}

func TestSessionByteResetsInactivityWindow(t *testing.T) {
	p := defaultParams()
	p.Timeout = time.Second
	s, sink, _, clock := newTestSession(p)

	// Keep bytes trickling in just under the threshold; no blank.
	for i := 0; i < 20; i++ {
		clock.advance(900 * time.Millisecond)
		s.HandleByte(0x00) // noise, but still counts as host activity
		s.Idle()
	}

	if sink.commits() != 0 {
		t.Errorf("blank commits = %d, want 0 while bytes keep arriving", sink.commits())
	}
}
