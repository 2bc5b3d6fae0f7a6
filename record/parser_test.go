package record

import (
	"bytes"
	"testing"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/errs"
	"github.com/austream/au/value"
	"github.com/stretchr/testify/require"
)

type capturingHandler struct {
	NoopEvents
	dictAdds [][]string
	ints     []int64
	dictRefs []int
}

func (h *capturingHandler) OnNull(int64)                 {}
func (h *capturingHandler) OnBool(int64, bool)           {}
func (h *capturingHandler) OnInt(pos int64, i int64)     { h.ints = append(h.ints, i) }
func (h *capturingHandler) OnUint(int64, uint64)         {}
func (h *capturingHandler) OnDouble(int64, float64)      {}
func (h *capturingHandler) OnTime(int64, int64)          {}
func (h *capturingHandler) OnDictRef(pos int64, idx int) { h.dictRefs = append(h.dictRefs, idx) }
func (h *capturingHandler) OnStringStart(int64, int)     {}
func (h *capturingHandler) OnStringFragment([]byte)      {}
func (h *capturingHandler) OnStringEnd()                 {}
func (h *capturingHandler) OnObjectStart()               {}
func (h *capturingHandler) OnObjectEnd()                 {}
func (h *capturingHandler) OnArrayStart()                {}
func (h *capturingHandler) OnArrayEnd()                  {}
func (h *capturingHandler) OnDictAdd(pos int64, strs []string) {
	h.dictAdds = append(h.dictAdds, strs)
}

// buildStream appends a header at position 0, a dict-add of "k" back-offset
// to the header, and a value record holding the object {k: 1}.
func buildStream(t *testing.T) []byte {
	t.Helper()
	var buf []byte

	// Header: tag, version=1, metadata="" .
	headerPos := int64(len(buf))
	buf = append(buf, TagHeader)
	buf = appendUvarint(buf, 1)
	buf = appendString(buf, "")

	// Dict-add: back-offset to header, count=1, "k".
	dictAddPos := int64(len(buf))
	buf = append(buf, TagDictAdd)
	buf = appendUvarint(buf, uint64(dictAddPos-headerPos))
	buf = appendUvarint(buf, 1)
	buf = appendString(buf, "k")

	// Value: back-offset to dict-add, payload length, object{dictref(0): int(1)}.
	var payload []byte
	payload = append(payload, value.TagObjectStart)
	payload = append(payload, value.TagDictRef)
	payload = appendUvarint(payload, 0)
	payload = append(payload, value.TagInt)
	payload = appendVarint(payload, 1)
	payload = append(payload, value.TagObjectEnd)

	valuePos := int64(len(buf))
	buf = append(buf, TagValue)
	buf = appendUvarint(buf, uint64(valuePos-dictAddPos))
	buf = appendUvarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)

	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [10]byte
	n := 0
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			tmp[n] = b | 0x80
		} else {
			tmp[n] = b
		}
		n++
		if v == 0 {
			break
		}
	}

	return append(buf, tmp[:n]...)
}

func appendVarint(buf []byte, v int64) []byte {
	return appendUvarint(buf, uint64(v<<1)^uint64(v>>63))
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))

	return append(buf, s...)
}

func TestParser_FullRecordStream(t *testing.T) {
	data := buildStream(t)
	src := bytesource.NewReaderSource(bytes.NewReader(data), "<test>")
	d := dict.New(0)
	h := &capturingHandler{}
	p := New(src, d, h)

	require.NoError(t, p.ParseStream())
	require.Equal(t, [][]string{{"k"}}, h.dictAdds)
	require.Equal(t, []int{0}, h.dictRefs)
	require.Equal(t, []int64{1}, h.ints)

	s, err := d.At(0)
	require.NoError(t, err)
	require.Equal(t, "k", s)
}

func TestParser_ParseUntilValue(t *testing.T) {
	data := buildStream(t)
	src := bytesource.NewReaderSource(bytes.NewReader(data), "<test>")
	d := dict.New(0)
	h := &capturingHandler{}
	p := New(src, d, h)

	ok, err := p.ParseUntilValue()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{1}, h.ints)
}

func TestParser_BackOffsetMismatch(t *testing.T) {
	data := buildStream(t)
	// Corrupt the dict-add's back-offset byte (right after the tag).
	headerLen := 1 + 1 + 1   // tag + version-varint + empty-string-len
	data[headerLen+1] = 0x05 // wrong, but still a single-byte varint

	src := bytesource.NewReaderSource(bytes.NewReader(data), "<test>")
	d := dict.New(0)
	h := &capturingHandler{}
	p := New(src, d, h)

	err := p.ParseStream()
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrDictInconsistent)
}

func TestParser_UnsupportedVersion(t *testing.T) {
	var buf []byte
	buf = append(buf, TagHeader)
	buf = appendUvarint(buf, 2)
	buf = appendString(buf, "")

	src := bytesource.NewReaderSource(bytes.NewReader(buf), "<test>")
	d := dict.New(0)
	h := &capturingHandler{}
	p := New(src, d, h)

	err := p.ParseStream()
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
}
