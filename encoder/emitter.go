package encoder

import (
	"fmt"

	"github.com/austream/au/errs"
	"github.com/austream/au/internal/endian"
	"github.com/austream/au/internal/pool"
	"github.com/austream/au/value"
	"github.com/austream/au/varint"
)

// InternHint tells the encoder how a string value should be interned.
type InternHint int

const (
	// Auto looks the string up in the intern cache and only promotes it
	// into the dictionary once its reference count crosses the encoder's
	// threshold; below that it's emitted inline.
	Auto InternHint = iota
	// ForceIntern always resolves to a dictionary reference, promoting
	// the string immediately if it isn't already interned. Map keys
	// always use this, since inline string keys aren't permitted on the
	// wire.
	ForceIntern
	// ForceNoIntern always emits the string inline, bypassing the intern
	// cache entirely. Intended for caller-flagged high-cardinality
	// fields that would otherwise pollute the cache.
	ForceNoIntern
)

// Emitter is the field-by-field API Encoder.Encode hands to its caller's
// callback. Its method set mirrors value.Handler's event set so that
// whatever an Emitter writes, a value.Parser reading it back emits the
// same events.
type Emitter struct {
	enc *Encoder
	buf *pool.ByteBuffer
}

// Null emits a null value.
func (f *Emitter) Null() {
	f.buf.B = append(f.buf.B, value.TagNull)
}

// Bool emits a boolean value.
func (f *Emitter) Bool(b bool) {
	if b {
		f.buf.B = append(f.buf.B, value.TagTrue)
	} else {
		f.buf.B = append(f.buf.B, value.TagFalse)
	}
}

// Int emits a signed integer value.
func (f *Emitter) Int(i int64) {
	f.buf.B = append(f.buf.B, value.TagInt)
	f.buf.B = varint.AppendVarint(f.buf.B, i)
}

// Uint emits an unsigned integer value.
func (f *Emitter) Uint(u uint64) {
	f.buf.B = append(f.buf.B, value.TagUint)
	f.buf.B = varint.AppendUvarint(f.buf.B, u)
}

// Double emits a float64 value.
func (f *Emitter) Double(d float64) {
	f.buf.B = append(f.buf.B, value.TagDouble)
	f.buf.B = endian.AppendDouble(f.buf.B, d)
}

// Time emits a timestamp value as signed nanoseconds since the Unix epoch.
func (f *Emitter) Time(nanosSinceEpoch int64) {
	f.buf.B = append(f.buf.B, value.TagTime)
	f.buf.B = varint.AppendVarint(f.buf.B, nanosSinceEpoch)
}

// String emits a string value, resolved to inline or dict-ref form per hint.
func (f *Emitter) String(s string, hint InternHint) {
	switch hint {
	case ForceIntern:
		f.writeDictRef(f.enc.internIndex(s))
	case ForceNoIntern:
		f.writeInline(s)
	default:
		f.autoString(s)
	}
}

// Key emits a map key. Keys are always dictionary references on the wire,
// regardless of how often the key name has been seen.
func (f *Emitter) Key(s string) {
	f.writeDictRef(f.enc.internIndex(s))
}

func (f *Emitter) autoString(s string) {
	if idx, ok := f.enc.dict.IndexOf(s); ok {
		f.writeDictRef(idx)

		return
	}
	if idx, ok := f.enc.pendingIndex[s]; ok {
		f.writeDictRef(idx)

		return
	}

	f.enc.cache.Observe(s)
	if f.enc.cache.ReachedThreshold(s) {
		f.writeDictRef(f.enc.internIndex(s))

		return
	}

	f.writeInline(s)
}

func (f *Emitter) writeInline(s string) {
	f.buf.B = append(f.buf.B, value.TagString)
	f.buf.B = varint.AppendUvarint(f.buf.B, uint64(len(s)))
	f.buf.B = append(f.buf.B, s...)
}

func (f *Emitter) writeDictRef(idx int) {
	f.buf.B = append(f.buf.B, value.TagDictRef)
	f.buf.B = varint.AppendUvarint(f.buf.B, uint64(idx))
}

// StartMap begins a map. Every key that follows must be paired with
// exactly one value before EndMap.
func (f *Emitter) StartMap() {
	f.buf.B = append(f.buf.B, value.TagObjectStart)
}

// EndMap closes the most recently opened map.
func (f *Emitter) EndMap() {
	f.buf.B = append(f.buf.B, value.TagObjectEnd)
}

// StartArray begins an array.
func (f *Emitter) StartArray() {
	f.buf.B = append(f.buf.B, value.TagArrayStart)
}

// EndArray closes the most recently opened array.
func (f *Emitter) EndArray() {
	f.buf.B = append(f.buf.B, value.TagArrayEnd)
}

func wrapIOErr(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrIO, err)
}
