// Package protocol implements the Adalight serial framing protocol.
//
// This package handles synchronization, validation, and consumption of the
// byte stream an Adalight host (Prismatik, Hyperion, ambilight scripts)
// writes to the receiver, plus construction of well-formed frames for the
// sender side.
//
// # Wire Format
//
// Every frame has this structure:
//   - Magic sequence: fixed byte pattern, "Ada" (0x41 0x64 0x61) by default
//   - Count high byte, count low byte: big-endian, encodes LED count minus one
//   - Checksum: count_hi XOR count_lo XOR 0x55
//   - Payload: 3*(count+1) bytes of consecutive R,G,B triples
//
// A count field of 0 is valid and addresses exactly one LED.
//
// # State Machine
//
// The receiver side is a per-byte state machine (Session) with two modes:
//
//   - Synchronizing: scan for the magic sequence, then read the three
//     trailing header bytes. A checksum mismatch discards the header and
//     resumes scanning; the protocol self-heals and never reports the
//     corruption upstream.
//   - ReceivingPayload: account for exactly the declared number of payload
//     bytes, latching completed RGB triples into the output sink. Bytes
//     beyond the physical strip length are consumed and discarded so the
//     stream never desynchronizes.
//
// Bytes arrive one at a time; the machine never assumes a whole header or
// triple is available in a single step. When no byte is pending the caller
// invokes Idle instead, which emits the periodic liveness ACK and enforces
// the inactivity blank.
//
// # Usage Example - Receiving
//
//	sess := protocol.NewSession(params, sink, host)
//	for {
//	    if b, ok := tr.NextByte(); ok {
//	        sess.HandleByte(b)
//	    } else {
//	        sess.Idle()
//	    }
//	}
//
// # Usage Example - Sending
//
//	frame, err := protocol.EncodeFrame(protocol.DefaultMagic, rgb)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	port.Write(frame)
package protocol
