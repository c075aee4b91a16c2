// Package receiver runs the single-threaded polling loop that drives the
// protocol session: one byte per iteration from the transport when
// available, the idle watchdog otherwise. Session state is owned
// exclusively by this loop's goroutine and needs no locking.
package receiver

import (
	"context"
	"time"

	"github.com/kholmogorov27/esp32-adalight/internal/logging"
	"github.com/kholmogorov27/esp32-adalight/internal/protocol"
	"github.com/kholmogorov27/esp32-adalight/internal/transport"
)

// defaultIdleSleep keeps the loop from spinning while the link is quiet.
// Short enough that a 1s ACK cadence stays accurate.
const defaultIdleSleep = time.Millisecond

// Receiver couples a transport to a protocol session.
type Receiver struct {
	session   *protocol.Session
	tr        transport.Transport
	idleSleep time.Duration
}

// New creates a receiver around an existing session and transport.
func New(session *protocol.Session, tr transport.Transport) *Receiver {
	return &Receiver{
		session:   session,
		tr:        tr,
		idleSleep: defaultIdleSleep,
	}
}

// Run polls until ctx is cancelled. Bytes are consumed back to back while
// pending; the watchdog runs only on iterations without one.
func (r *Receiver) Run(ctx context.Context) error {
	logging.Info("receiver loop started")
	defer logging.Info("receiver loop stopped")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if b, ok := r.tr.NextByte(); ok {
			r.session.HandleByte(b)
			continue
		}
		r.session.Idle()
		time.Sleep(r.idleSleep)
	}
}
