// Package preview renders committed strip frames in the terminal.
//
// It is a small bubbletea program: a spinner while no frame has been
// committed yet, then one colored block per LED, updated live as frames
// latch. Intended for bring-up and debugging a host without physical LEDs
// attached.
package preview
