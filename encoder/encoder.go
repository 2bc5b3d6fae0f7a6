// Package encoder implements the write side of the codec: a caller invokes
// Encode once per record with a callback that drives an Emitter through the
// same event shape package value decodes, and the Encoder handles record
// framing, back-offset bookkeeping, and the intern cache's promote/flush/
// overflow policy on its behalf.
package encoder

import (
	"io"

	"github.com/austream/au/dict"
	"github.com/austream/au/internal/intern"
	"github.com/austream/au/internal/pool"
	"github.com/austream/au/record"
	"github.com/austream/au/varint"
)

// DefaultSoftCap is the combined cache+dictionary size above which the
// encoder clears the dictionary and starts a fresh epoch.
const DefaultSoftCap = 250_000

// DefaultInternThreshold is the reference count at which an auto-interned
// string is promoted into the dictionary: the observation that brings its
// count up to this value is the one emitted as a dict-ref.
const DefaultInternThreshold = 100

// Stats reports encoder progress for external consumers (e.g. a CLI's
// periodic progress line).
type Stats struct {
	Records     int
	DictSize    int
	HashSize    int
	HashBuckets int
	CacheSize   int
}

// Encoder emits Au records to w, dictionary-encoding repeated strings via
// an intern cache.
type Encoder struct {
	w            io.Writer
	dict         *dict.Dictionary
	cache        *intern.Cache
	internThresh int
	softCap      int
	pendingAdds  []string
	pendingIndex map[string]int
	pos          int64
	records      int
}

// New creates an Encoder that writes a header record with the given
// metadata before returning. softCap and internThreshold of 0 fall back to
// DefaultSoftCap and DefaultInternThreshold.
func New(w io.Writer, metadata string, softCap, internThreshold int) (*Encoder, error) {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	if internThreshold <= 0 {
		internThreshold = DefaultInternThreshold
	}

	e := &Encoder{
		w:            w,
		dict:         dict.New(0),
		cache:        intern.New(internThreshold),
		internThresh: internThreshold,
		softCap:      softCap,
		pendingIndex: make(map[string]int),
	}

	if err := e.writeHeader(metadata); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Encoder) writeHeader(metadata string) error {
	recPos := e.pos
	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	buf.B = append(buf.B, record.TagHeader)
	buf.B = varint.AppendUvarint(buf.B, record.Version)
	buf.B = appendString(buf.B, metadata)

	if err := e.write(buf.B); err != nil {
		return err
	}
	e.dict.SetLastEventPos(recPos)

	return nil
}

// Encode builds one value record by invoking fn with a fresh Emitter, then
// flushes whatever dict-add the value's interning produced and writes the
// value record itself.
func (e *Encoder) Encode(fn func(em *Emitter) error) error {
	if e.dict.Size()+e.cache.Size() > e.softCap {
		if err := e.writeDictClear(); err != nil {
			return err
		}
	}

	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	em := &Emitter{enc: e, buf: buf}
	if err := fn(em); err != nil {
		return err
	}

	if err := e.flushPendingAdds(); err != nil {
		return err
	}

	return e.writeValueRecord(buf.B)
}

func (e *Encoder) writeDictClear() error {
	recPos := e.pos
	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	buf.B = append(buf.B, record.TagDictClear)
	if err := e.write(buf.B); err != nil {
		return err
	}

	e.dict.Clear(recPos)
	e.cache.Reset()

	return nil
}

func (e *Encoder) flushPendingAdds() error {
	if len(e.pendingAdds) == 0 {
		return nil
	}

	recPos := e.pos
	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	buf.B = append(buf.B, record.TagDictAdd)
	buf.B = varint.AppendUvarint(buf.B, uint64(recPos-e.dict.LastEventPos()))
	buf.B = varint.AppendUvarint(buf.B, uint64(len(e.pendingAdds)))
	for _, s := range e.pendingAdds {
		buf.B = appendString(buf.B, s)
	}

	if err := e.write(buf.B); err != nil {
		return err
	}

	for _, s := range e.pendingAdds {
		e.dict.Append(s, recPos)
	}
	e.pendingAdds = e.pendingAdds[:0]
	for k := range e.pendingIndex {
		delete(e.pendingIndex, k)
	}

	return nil
}

func (e *Encoder) writeValueRecord(payload []byte) error {
	recPos := e.pos
	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)

	buf.B = append(buf.B, record.TagValue)
	buf.B = varint.AppendUvarint(buf.B, uint64(recPos-e.dict.LastEventPos()))
	buf.B = varint.AppendUvarint(buf.B, uint64(len(payload)))
	buf.B = append(buf.B, payload...)

	if err := e.write(buf.B); err != nil {
		return err
	}
	e.records++

	return nil
}

func (e *Encoder) write(b []byte) error {
	n, err := e.w.Write(b)
	e.pos += int64(n)
	if err != nil {
		return wrapIOErr(err)
	}

	return nil
}

// internIndex returns the dictionary index s will have once the current
// record's pending dict-add is flushed, queuing s for that flush if it
// isn't already promoted or queued.
func (e *Encoder) internIndex(s string) int {
	if idx, ok := e.dict.IndexOf(s); ok {
		return idx
	}
	if idx, ok := e.pendingIndex[s]; ok {
		return idx
	}

	idx := e.dict.Size() + len(e.pendingAdds)
	e.pendingAdds = append(e.pendingAdds, s)
	e.pendingIndex[s] = idx

	return idx
}

// Stats reports the encoder's current counters.
func (e *Encoder) Stats() Stats {
	return Stats{
		Records:     e.records,
		DictSize:    e.dict.Size(),
		HashSize:    e.cache.Size(),
		HashBuckets: e.cache.Size(),
		CacheSize:   e.cache.Size(),
	}
}

func appendString(buf []byte, s string) []byte {
	buf = varint.AppendUvarint(buf, uint64(len(s)))

	return append(buf, s...)
}
