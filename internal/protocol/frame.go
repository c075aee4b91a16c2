package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame constants
const (
	// ChecksumSeed is XORed into the two count bytes to form the header
	// checksum. Inherited from the original Adalight sketch.
	ChecksumSeed = 0x55

	// HeaderTrailerSize is the number of header bytes following the magic
	// sequence: count high, count low, checksum.
	HeaderTrailerSize = 3

	// BytesPerPixel is fixed: one byte per R, G, B channel.
	BytesPerPixel = 3

	// MaxPixelsPerFrame is the largest pixel count the 16-bit header field
	// can declare (field value 0xFFFF encodes count 65536).
	MaxPixelsPerFrame = 0x10000
)

// DefaultMagic is the frame marker used by stock Adalight hosts ("Ada").
var DefaultMagic = []byte{0x41, 0x64, 0x61}

// DefaultAck is the liveness signal stock hosts expect ("Ada\n").
var DefaultAck = []byte{0x41, 0x64, 0x61, 0x0a}

// Checksum computes the header checksum for the two count bytes.
func Checksum(hi, lo byte) byte {
	return hi ^ lo ^ ChecksumSeed
}

// PayloadLen returns the payload length in bytes declared by the two count
// bytes: 3*(count+1), where the field encodes the LED count minus one.
func PayloadLen(hi, lo byte) int {
	return BytesPerPixel * (int(binary.BigEndian.Uint16([]byte{hi, lo})) + 1)
}

// EncodeFrame builds a complete wire frame for the given RGB payload.
//
// Frame structure:
//
//	[0..m-1]  magic sequence
//	[m]       count high byte (big-endian, pixel count minus one)
//	[m+1]     count low byte
//	[m+2]     checksum (hi XOR lo XOR 0x55)
//	[m+3..]   payload: consecutive R,G,B triples
//
// rgb must be a non-empty multiple of 3 bytes and at most 3*65536 bytes.
func EncodeFrame(magic []byte, rgb []byte) ([]byte, error) {
	if len(magic) == 0 {
		return nil, fmt.Errorf("empty magic sequence")
	}
	if len(rgb) == 0 || len(rgb)%BytesPerPixel != 0 {
		return nil, fmt.Errorf("payload length %d is not a non-empty multiple of %d", len(rgb), BytesPerPixel)
	}
	pixels := len(rgb) / BytesPerPixel
	if pixels > MaxPixelsPerFrame {
		return nil, fmt.Errorf("payload declares %d pixels (max %d)", pixels, MaxPixelsPerFrame)
	}

	frame := make([]byte, 0, len(magic)+HeaderTrailerSize+len(rgb))
	frame = append(frame, magic...)

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(pixels-1))
	frame = append(frame, count[0], count[1], Checksum(count[0], count[1]))
	frame = append(frame, rgb...)
	return frame, nil
}
