// Package transport provides the byte transports the receiver polls.
//
// A Transport is a non-blocking source of inbound bytes (NextByte returns
// false when nothing is pending, which is not end-of-stream) plus the
// outbound path for liveness ACKs. Serial is the production implementation
// over a real serial port; Loopback is an in-memory implementation used by
// tests and by the demo mode of adalightd.
package transport
