// Package pool provides a pooled, amortized-growth byte buffer used by both
// sides of the codec: the encoder batches a record's payload into one
// before handing it to the sink, and bytesource.Source holds its resident
// history/lookahead window in one (growing it by its own fixed step).
//
// Growth policy: small buffers grow by a fixed step to
// avoid thrashing on the first few writes, large buffers grow by a fraction
// of their current size to amortize the cost of repeated reallocation.
package pool

import (
	"io"
	"sync"
)

// Default and ceiling sizes for the two buffer pools this package exposes.
//
//   - Record buffers back a single encoder call's payload; most records are
//     well under a kilobyte, so the default is small.
//   - Stream buffers back bytesource.Source's working window, whose
//     resident-history and refill-chunk sizing calls for a much larger
//     default.
const (
	RecordBufferDefaultSize  = 4 * 1024   // 4KiB
	RecordBufferMaxThreshold = 128 * 1024 // 128KiB

	StreamBufferDefaultSize  = 256 * 1024      // 256KiB, matches the byte source's refill chunk
	StreamBufferMaxThreshold = 8 * 1024 * 1024 // 8MiB
)

// ByteBuffer is a growable byte slice with amortized growth, pooled via
// sync.Pool to avoid repeated allocation on the hot encode/decode path.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer allocates a ByteBuffer with the given starting capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the buffer's current contents.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer without releasing its backing array.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len reports the number of bytes currently held.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap reports the buffer's current capacity.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite appends data, growing the buffer if needed. It never fails.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Write implements io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)

	return len(data), nil
}

// WriteTo implements io.WriterTo.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)

	return int64(n), err
}

// Grow ensures the buffer can accept requiredBytes more bytes without a
// further reallocation.
//
// Growth policy: up to 4x RecordBufferDefaultSize (16KiB) of capacity,
// whichever pool the buffer came from, grow by a fixed RecordBufferDefaultSize
// step (minimizes reallocations for the common small-record case); above that,
// grow by 25% of current capacity (amortizes cost for large payloads, e.g.
// a grep driver re-emitting a wide before-context window).
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if cap(bb.B)-len(bb.B) >= requiredBytes {
		return
	}

	growBy := RecordBufferDefaultSize
	if cap(bb.B) > 4*RecordBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// ByteBufferPool pools ByteBuffers of a given default size, discarding
// buffers that grew past maxThreshold instead of retaining them forever.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose buffers start at defaultSize and
// are discarded on Put if they grew past maxThreshold (0 disables the cap).
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer, allocating a new one if the pool is empty.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)

	return bb
}

// Put returns bb to the pool after resetting it, unless it grew beyond the
// pool's threshold, in which case it is dropped for the GC to reclaim.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}

	bb.Reset()
	p.pool.Put(bb)
}

var (
	recordPool = NewByteBufferPool(RecordBufferDefaultSize, RecordBufferMaxThreshold)
	streamPool = NewByteBufferPool(StreamBufferDefaultSize, StreamBufferMaxThreshold)
)

// GetRecordBuffer retrieves a buffer sized for a single record payload.
func GetRecordBuffer() *ByteBuffer { return recordPool.Get() }

// PutRecordBuffer returns a record buffer to its pool.
func PutRecordBuffer(bb *ByteBuffer) { recordPool.Put(bb) }

// GetStreamBuffer retrieves a buffer sized for a byte source's working window.
func GetStreamBuffer() *ByteBuffer { return streamPool.Get() }

// PutStreamBuffer returns a stream buffer to its pool.
func PutStreamBuffer(bb *ByteBuffer) { streamPool.Put(bb) }
