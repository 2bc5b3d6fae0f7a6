// Package errs defines the sentinel errors returned across the au module.
//
// Callers should use errors.Is against these values rather than comparing
// error strings; functions that need to attach position information wrap
// one of these with record.ParseError instead of minting a new error type.
package errs

import "errors"

var (
	// ErrIO wraps a failure from the underlying reader or writer.
	ErrIO = errors.New("io error")

	// ErrUnexpectedEOF is returned when read_exact cannot deliver the
	// requested number of bytes before the source is exhausted.
	ErrUnexpectedEOF = errors.New("unexpected eof")

	// ErrMalformedRecord is returned when a tag byte or record framing
	// does not match any entry in the wire grammar.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnsupportedVersion is returned when a header record names a
	// version byte the decoder does not understand.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrDictInconsistent is returned when a record's back-offset does
	// not resolve to the dictionary's recorded last-event position.
	ErrDictInconsistent = errors.New("dictionary back-offset inconsistent")

	// ErrOverflow is returned by the varint codec when a value would
	// need more than 10 continuation bytes, or would exceed 2^64-1.
	ErrOverflow = errors.New("varint overflow")

	// ErrNestingExceeded is returned when array/object nesting in a
	// value payload exceeds the parser's configured bound.
	ErrNestingExceeded = errors.New("nesting depth exceeded")

	// ErrSeekFailed is returned when a seek is required but the
	// underlying source cannot satisfy it (non-seekable stream, seek
	// target outside retained history and outside the forward stream).
	ErrSeekFailed = errors.New("seek failed")

	// ErrResyncFailed is returned when seek_sync exhausts its scan
	// window without finding a valid record boundary.
	ErrResyncFailed = errors.New("resync failed")

	// ErrDictIndexOutOfRange is returned by Dictionary.At for an index
	// that was never appended, or was invalidated by a Clear.
	ErrDictIndexOutOfRange = errors.New("dictionary index out of range")

	// ErrInvalidPattern is returned when a grep Pattern's options are
	// mutually inconsistent (e.g. a timestamp range with hi <= lo).
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrNotSeekable is returned by bisect when the supplied source
	// cannot report an end position or cannot seek.
	ErrNotSeekable = errors.New("source is not seekable")
)
