// Package config loads and validates the receiver configuration.
//
// Configuration lives in a single YAML file. Every field has a working
// default, so a missing file is not an error: the daemon runs with a 60-LED
// strip on /dev/ttyUSB0 at 115200 baud speaking stock Adalight framing.
//
// Example file:
//
//	serial:
//	  port: /dev/ttyUSB0
//	  baud: 115200
//	strip:
//	  length: 60
//	  reversed: false
//	protocol:
//	  magic: "Ada"
//	  timeout_ms: 5000
//	  ack: "Ada\n"
//	  ack_interval_ms: 1000
//	  drain_after_frame: false
//	monitor:
//	  enabled: false
//	  listen: ":8420"
//	  mdns: false
package config
