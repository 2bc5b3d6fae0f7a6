// Package bytesource implements the buffered, seek-back-capable reader that
// every other component in this module reads through: the record parser,
// grep's rewind-and-reemit, bisect's probes, and tail's resync all go
// through a Source rather than an io.Reader directly.
//
// The design — a resident history window behind the cursor, a pin that
// protects a position from being evicted, and scan-to-needle for resync —
// is a direct port of FileByteSource, adapted from its
// malloc/memmove buffer to a Go slice (a pool.ByteBuffer) that grows by a
// fixed RefillChunk step whenever it is full.
package bytesource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/austream/au/errs"
	"github.com/austream/au/internal/pool"
)

// MinHistory is the minimum amount of consumed data kept resident in the
// buffer so that seek-back works even against a non-seekable underlying
// stream (e.g. a pipe).
const MinHistory = 1024

// RefillChunk is the fixed amount the working buffer grows by whenever it
// runs out of free space. Growth is linear, not exponential: there is no
// reason to expect the buffer needs to grow faster than the stream itself.
const RefillChunk = 256 * 1024

// Source is the interface the rest of this module reads through.
type Source interface {
	// Name identifies the source for error messages.
	Name() string

	// Pos returns the absolute position of the cursor in the underlying
	// stream.
	Pos() int64

	// Next consumes and returns the next byte, or io.EOF.
	Next() (byte, error)

	// Peek returns the next byte without consuming it, or io.EOF.
	Peek() (byte, error)

	// ReadExact delivers exactly n bytes to fn, possibly across more than
	// one call if the bytes span a buffer refill. fn must not retain the
	// slice past its call.
	ReadExact(n int, fn func([]byte)) error

	// Skip logically advances the cursor by n bytes.
	Skip(n int64) error

	// Seek moves the cursor to an absolute position, in-place if abspos lies
	// within the resident window (retained history or buffered lookahead)
	// and falling back to an underlying-stream seek otherwise. A
	// stream-level seek clears the pin.
	Seek(abspos int64) error

	// SetPin declares that abspos, which must lie within the resident
	// window, must remain resident across subsequent reads.
	SetPin(abspos int64)

	// ClearPin releases the current pin, if any.
	ClearPin()

	// ScanTo advances the cursor until needle appears at it, returning false
	// if the underlying stream is exhausted first.
	ScanTo(needle []byte) (bool, error)

	// IsSeekable reports whether Seek can reach arbitrary absolute
	// positions, which bisect requires.
	IsSeekable() bool

	// EndPos reports the size of the underlying stream, used by bisect to
	// set its initial search bound.
	EndPos() (int64, error)
}

// rawSource is the minimal thing a concrete Source implementation needs
// from its backing store.
type rawSource interface {
	doRead(buf []byte) (int, error)
	doSeek(abspos int64) error
	isSeekable() bool
	endPos() (int64, error)
	name() string
}

// base implements the buffering, pinning, and scanning logic once, shared
// by every concrete rawSource.
type base struct {
	raw rawSource

	ctx         context.Context
	waitForData bool
	retryDelay  time.Duration
	buf         *pool.ByteBuffer
	pos         int64 // absolute position of buf.B[cur]
	cur         int   // index of the cursor within buf.B
	pinPos      int64
	pinSet      bool
}

// Option configures a Source at construction time.
type Option func(*base)

// WithWaitForData puts the source in follow mode: a zero-byte read sleeps
// and retries instead of signaling EOF. Used by tail.
func WithWaitForData() Option {
	return func(b *base) { b.waitForData = true }
}

// WithRetryDelay overrides the sleep between retries in wait-for-data mode
// (default 1 second, matching the follow-mode poll granularity).
func WithRetryDelay(d time.Duration) Option {
	return func(b *base) { b.retryDelay = d }
}

// WithContext makes reads in wait-for-data mode responsive to cancellation;
// without one, context.Background() is used and a wait-for-data read keeps
// retrying until data arrives or the underlying read fails.
func WithContext(ctx context.Context) Option {
	return func(b *base) { b.ctx = ctx }
}

func newBase(raw rawSource, opts ...Option) *base {
	b := &base{
		raw:        raw,
		ctx:        context.Background(),
		retryDelay: time.Second,
		buf:        pool.NewByteBuffer(pool.StreamBufferDefaultSize),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *base) Name() string { return b.raw.name() }
func (b *base) Pos() int64   { return b.pos }

func (b *base) avail() int { return b.buf.Len() - b.cur }

func (b *base) Next() (byte, error) {
	for b.avail() == 0 {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	c := b.buf.B[b.cur]
	b.cur++
	b.pos++

	return c, nil
}

func (b *base) Peek() (byte, error) {
	for b.avail() == 0 {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}

	return b.buf.B[b.cur], nil
}

func (b *base) ReadExact(n int, fn func([]byte)) error {
	for n > 0 {
		for b.avail() == 0 {
			if err := b.fill(); err != nil {
				if errors.Is(err, io.EOF) {
					return errs.ErrUnexpectedEOF
				}

				return err
			}
		}
		take := n
		if a := b.avail(); a < take {
			take = a
		}
		fn(b.buf.B[b.cur : b.cur+take])
		b.cur += take
		b.pos += int64(take)
		n -= take
	}

	return nil
}

func (b *base) Skip(n int64) error {
	return b.Seek(b.pos + n)
}

func (b *base) Seek(abspos int64) error {
	histStart := b.pos - int64(b.cur)
	if abspos >= histStart && abspos <= b.pos+int64(b.avail()) {
		b.cur += int(abspos - b.pos)
		b.pos = abspos

		return nil
	}

	if !b.raw.isSeekable() {
		return errs.ErrSeekFailed
	}
	if err := b.raw.doSeek(abspos); err != nil {
		return errs.ErrSeekFailed
	}
	b.buf.Reset()
	b.cur = 0
	b.pos = abspos
	b.ClearPin()

	if err := b.fill(); err != nil {
		return err
	}

	return nil
}

func (b *base) SetPin(abspos int64) {
	b.pinPos = abspos
	b.pinSet = true
}

func (b *base) ClearPin() {
	b.pinSet = false
}

func (b *base) ScanTo(needle []byte) (bool, error) {
	for {
		for b.avail() < len(needle) {
			if err := b.fill(); err != nil {
				if errors.Is(err, io.EOF) {
					return false, nil
				}

				return false, err
			}
		}

		window := b.buf.B[b.cur:b.buf.Len()]
		idx := bytes.Index(window, needle)
		if idx >= 0 {
			b.cur += idx
			b.pos += int64(idx)

			return true, nil
		}

		advance := b.avail() - (len(needle) - 1)
		if advance <= 0 {
			advance = 1
		}
		if err := b.Skip(int64(advance)); err != nil {
			return false, err
		}
	}
}

func (b *base) IsSeekable() bool       { return b.raw.isSeekable() }
func (b *base) EndPos() (int64, error) { return b.raw.endPos() }

// fill refills the buffer, compacting history out of the way first and
// growing the buffer if there's no room left to read into.
func (b *base) fill() error {
	histSz := int64(MinHistory)
	if b.pinSet && b.pinPos < b.pos {
		if pinned := b.pos - b.pinPos; pinned > histSz {
			histSz = pinned
		}
	}

	if int64(b.cur) > histSz {
		shift := int64(b.cur) - histSz
		copy(b.buf.B, b.buf.B[shift:])
		b.buf.B = b.buf.B[:int64(b.buf.Len())-shift]
		b.cur -= int(shift)
	}

	if b.buf.Cap()-b.buf.Len() == 0 {
		grown := make([]byte, b.buf.Len(), b.buf.Cap()+RefillChunk)
		copy(grown, b.buf.B)
		b.buf.B = grown
	}

	free := b.buf.Cap() - b.buf.Len()
	readInto := b.buf.B[b.buf.Len() : b.buf.Len()+free]

	for {
		n, err := b.raw.doRead(readInto)
		if n > 0 {
			b.buf.B = b.buf.B[:b.buf.Len()+n]

			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return errs.ErrIO
		}
		if !b.waitForData {
			return io.EOF
		}

		select {
		case <-b.ctx.Done():
			return io.EOF
		case <-time.After(b.retryDelay):
		}
	}
}

// FileSource reads from an *os.File, supporting absolute seeks and EndPos.
// Its buffer has no upper size bound: while a pin holds history, it keeps
// growing by RefillChunk.
type FileSource struct {
	*base
	f *osFileRaw
}

type osFileRaw struct {
	f       *os.File
	nameStr string
}

func (r *osFileRaw) doRead(buf []byte) (int, error) { return r.f.Read(buf) }
func (r *osFileRaw) doSeek(abspos int64) error {
	_, err := r.f.Seek(abspos, io.SeekStart)

	return err
}
func (r *osFileRaw) isSeekable() bool {
	_, err := r.f.Seek(0, io.SeekCurrent)

	return err == nil
}
func (r *osFileRaw) endPos() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, errs.ErrIO
	}

	return info.Size(), nil
}
func (r *osFileRaw) name() string { return r.nameStr }

// NewFileSource wraps an already-open *os.File as a Source; name is used in
// error messages.
func NewFileSource(f *os.File, name string, opts ...Option) *FileSource {
	raw := &osFileRaw{f: f, nameStr: name}
	fs := &FileSource{f: raw}
	fs.base = newBase(raw, opts...)

	return fs
}

// readerRaw adapts an arbitrary io.Reader (e.g. stdin) that may not support
// seeking; IsSeekable reports false and Seek beyond history fails.
type readerRaw struct {
	r       io.Reader
	nameStr string
}

func (r *readerRaw) doRead(buf []byte) (int, error) { return r.r.Read(buf) }
func (r *readerRaw) doSeek(_ int64) error           { return errs.ErrSeekFailed }
func (r *readerRaw) isSeekable() bool               { return false }
func (r *readerRaw) endPos() (int64, error)         { return 0, errs.ErrNotSeekable }
func (r *readerRaw) name() string                   { return r.nameStr }

// ReaderSource adapts a plain io.Reader (a pipe, stdin, a network
// connection) that offers no seeking beyond the resident history window.
type ReaderSource struct {
	*base
}

// NewReaderSource wraps r as a non-seekable Source.
func NewReaderSource(r io.Reader, name string, opts ...Option) *ReaderSource {
	raw := &readerRaw{r: r, nameStr: name}
	rs := &ReaderSource{}
	rs.base = newBase(raw, opts...)

	return rs
}
