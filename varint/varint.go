// Package varint implements the base-128, little-endian variable-length
// integer encoding used to frame every Au record: back-offsets, lengths,
// counts, dictionary indices, and (after a ZigZag pass) signed integers and
// timestamps.
//
// The wire format matches the one encoding/ts_delta.go's delta-of-delta
// timestamp codec builds on top of encoding/binary's Uvarint/PutUvarint, so
// decode is a thin wrapper that turns the standard library's "ran out of
// bytes" and "overflowed 64 bits" outcomes into errs.ErrOverflow / a
// short-read signal the caller can distinguish from a genuine EOF.
package varint

import (
	"encoding/binary"

	"github.com/austream/au/errs"
)

// MaxLen is the longest a varint-encoded uint64 can be on the wire.
const MaxLen = binary.MaxVarintLen64

// PutUvarint encodes v into buf (which must have length >= MaxLen) and
// returns the number of bytes written.
func PutUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	var tmp [MaxLen]byte
	n := binary.PutUvarint(tmp[:], v)

	return append(buf, tmp[:n]...)
}

// DecodeUvarint decodes an unsigned varint from the front of buf, returning
// the value and the number of bytes consumed. It reports errs.ErrOverflow if
// more than 10 continuation bytes are seen, or if the value would exceed
// 2^64-1. A return of (0, 0) means buf held an incomplete (truncated)
// varint; the caller should treat that as needing more input.
func DecodeUvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n == 0 {
		return 0, 0, nil
	}
	if n < 0 {
		return 0, 0, errs.ErrOverflow
	}

	return v, n, nil
}

// ZigZagEncode maps a signed integer onto the unsigned varint space so that
// small-magnitude values (positive or negative) stay small on the wire.
func ZigZagEncode(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

// ZigZagDecode inverts ZigZagEncode.
func ZigZagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// PutVarint encodes the ZigZag form of v into buf and returns the number of
// bytes written.
func PutVarint(buf []byte, v int64) int {
	return PutUvarint(buf, ZigZagEncode(v))
}

// AppendVarint appends the ZigZag varint encoding of v to buf.
func AppendVarint(buf []byte, v int64) []byte {
	return AppendUvarint(buf, ZigZagEncode(v))
}

// DecodeVarint decodes a ZigZag-encoded signed varint from the front of buf.
func DecodeVarint(buf []byte) (int64, int, error) {
	u, n, err := DecodeUvarint(buf)
	if err != nil || n == 0 {
		return 0, n, err
	}

	return ZigZagDecode(u), n, nil
}
