// Package endian provides the fixed little-endian helpers the wire format
// uses for its one fixed-width field: the 8-byte IEEE-754 double.
//
// The wire format is bit-exact little-endian regardless of host byte
// order, so this package
// exposes plain functions rather than an EndianEngine abstraction — there is
// only ever one engine in play.
package endian

import (
	"encoding/binary"
	"math"
)

// DoubleSize is the fixed wire width of a double value payload.
const DoubleSize = 8

// PutDouble writes f into buf[:8] as little-endian IEEE-754 bits.
func PutDouble(buf []byte, f float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
}

// AppendDouble appends f to buf as little-endian IEEE-754 bits.
func AppendDouble(buf []byte, f float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
}

// Double reads a little-endian IEEE-754 double from buf[:8].
func Double(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}
