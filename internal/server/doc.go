// Package server implements the optional WebSocket monitor for the
// Adalight receiver.
//
// The monitor exposes the committed strip state over HTTP so host-side
// tooling (or a browser page) can watch what the strip is showing without
// touching the serial link:
//
//   - GET /ws       WebSocket: the current latched frame on connect, then
//     one JSON message per commit: {"seq":n,"count":n,"pixels":"<hex>"}
//   - GET /healthz  JSON status: frames committed, LED count, uptime
//
// When mDNS is enabled the server advertises itself as an
// "_adalight._tcp" service so host software can discover the receiver on
// the local network.
//
// The monitor only ever reads latched snapshots; it cannot interfere with
// the protocol state machine or the working pixel buffer.
package server
