// Package strip provides LED output sinks for the Adalight receiver.
//
// Buffer is the canonical sink: an in-memory addressable pixel buffer with a
// separately latched snapshot. Writes land in the working buffer; Commit
// latches them and fans the frame out to subscribers (the WebSocket monitor
// and the terminal preview). WriterSink additionally streams each committed
// frame as raw RGB bytes to an io.Writer, which is how a physical LED driver
// process is fed - the driver itself stays outside this repository.
package strip
