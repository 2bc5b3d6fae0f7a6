// Package jsonout renders decoded Au events as canonical JSON, and reads
// JSON back into an encoder.Emitter. It's the terminal consumer grep and
// tail hand matched records to, and the producer side of json2au.
package jsonout

import (
	"bufio"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/austream/au/dict"
	"github.com/austream/au/record"
)

type context uint8

const (
	contextBare context = iota
	contextObject
	contextArray
)

type frame struct {
	kind    context
	counter int
}

// Handler is a record.Handler that writes canonical JSON to w: one line per
// top-level value. Doubles use strconv's shortest round-trip formatting,
// timestamps render as microsecond-precision ISO-8601, and dictionary
// references are dereferenced against the dictionary in effect when the
// record is parsed.
type Handler struct {
	record.NoopEvents

	w    *bufio.Writer
	dict *dict.Dictionary

	context []frame
	str     []byte
	err     error
}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{w: bufio.NewWriter(w)}
}

// Flush flushes any buffered output.
func (h *Handler) Flush() error {
	if h.err != nil {
		return h.err
	}

	return h.w.Flush()
}

// SetDictionary binds the dictionary this Handler dereferences OnDictRef
// against. The caller (the grep/tail driver) must call this with the same
// *dict.Dictionary the record.Parser decoding into this Handler uses.
func (h *Handler) SetDictionary(d *dict.Dictionary) { h.dict = d }

// BeginValue resets per-record state and must be called before each
// top-level value this Handler renders.
func (h *Handler) BeginValue() {
	h.context = h.context[:0]
	h.context = append(h.context, frame{kind: contextBare})
}

// EndValue terminates the current top-level value with a newline.
func (h *Handler) EndValue() {
	if h.err != nil {
		return
	}
	_, h.err = h.w.WriteString("\n")
}

func (h *Handler) top() *frame { return &h.context[len(h.context)-1] }

func (h *Handler) isKey() bool {
	c := h.top()

	return c.kind == contextObject && c.counter%2 == 0
}

func (h *Handler) incrCounter() { h.top().counter++ }

func (h *Handler) write(b []byte) {
	if h.err != nil {
		return
	}
	_, h.err = h.w.Write(b)
}

func (h *Handler) writeString(s string) {
	if h.err != nil {
		return
	}
	_, h.err = h.w.WriteString(s)
}

func (h *Handler) beforeElement() {
	top := h.top()
	switch top.kind {
	case contextObject:
		if top.counter%2 == 0 && top.counter > 0 {
			h.writeString(",")
		}
	case contextArray:
		if top.counter > 0 {
			h.writeString(",")
		}
	}
}

func (h *Handler) OnNull(int64) {
	h.beforeElement()
	h.writeString("null")
	h.incrCounter()
}

func (h *Handler) OnBool(_ int64, b bool) {
	h.beforeElement()
	if b {
		h.writeString("true")
	} else {
		h.writeString("false")
	}
	h.incrCounter()
}

func (h *Handler) OnInt(_ int64, i int64) {
	h.beforeElement()
	h.writeString(strconv.FormatInt(i, 10))
	h.incrCounter()
}

func (h *Handler) OnUint(_ int64, u uint64) {
	h.beforeElement()
	h.writeString(strconv.FormatUint(u, 10))
	h.incrCounter()
}

func (h *Handler) OnDouble(_ int64, f float64) {
	h.beforeElement()
	h.writeString(strconv.FormatFloat(f, 'g', -1, 64))
	h.incrCounter()
}

// epoch is the Unix epoch in UTC, the base every Au timestamp is relative
// to.
var epoch = time.Unix(0, 0).UTC()

func (h *Handler) OnTime(_ int64, nanos int64) {
	h.beforeElement()
	t := epoch.Add(time.Duration(nanos))
	micros := int64(t.Nanosecond()) / 1000
	h.writeString(`"`)
	h.writeString(t.Format("2006-01-02T15:04:05"))
	h.writeString(".")
	h.writeString(pad6(micros))
	h.writeString(`"`)
	h.incrCounter()
}

func pad6(n int64) string {
	s := strconv.FormatInt(n, 10)
	for len(s) < 6 {
		s = "0" + s
	}

	return s
}

func (h *Handler) OnDictRef(_ int64, idx int) {
	h.beforeElement()
	isKey := h.isKey()

	s, err := h.dict.At(idx)
	if err != nil {
		if h.err == nil {
			h.err = err
		}

		return
	}

	h.writeEscapedString(s)
	if isKey {
		h.writeString(":")
	}
	h.incrCounter()
}

func (h *Handler) OnObjectStart() {
	h.beforeElement()
	h.writeString("{")
	h.context = append(h.context, frame{kind: contextObject})
}

func (h *Handler) OnObjectEnd() {
	h.context = h.context[:len(h.context)-1]
	h.writeString("}")
	h.incrCounter()
}

func (h *Handler) OnArrayStart() {
	h.beforeElement()
	h.writeString("[")
	h.context = append(h.context, frame{kind: contextArray})
}

func (h *Handler) OnArrayEnd() {
	h.context = h.context[:len(h.context)-1]
	h.writeString("]")
	h.incrCounter()
}

func (h *Handler) OnStringStart(_ int64, length int) {
	h.beforeElement()
	if cap(h.str) < length {
		h.str = make([]byte, 0, length)
	}
	h.str = h.str[:0]
}

func (h *Handler) OnStringFragment(frag []byte) {
	h.str = append(h.str, frag...)
}

func (h *Handler) OnStringEnd() {
	h.writeEscapedString(string(h.str))
	h.incrCounter()
}

// writeEscapedString writes s as a double-quoted JSON string literal.
// There's no JSON writer among the corpus's dependencies to delegate this
// to; the escape table below is the minimal one canonical JSON requires.
func (h *Handler) writeEscapedString(s string) {
	if h.err != nil {
		return
	}
	buf := make([]byte, 0, len(s)+2)
	buf = append(buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if r < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigit(byte(r)>>4), hexDigit(byte(r)&0xf))

				continue
			}
			buf = appendRune(buf, r)
		}
	}
	buf = append(buf, '"')
	h.write(buf)
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}

	return 'a' + n - 10
}

func appendRune(buf []byte, r rune) []byte {
	var tmp [utf8.UTFMax]byte
	n := utf8.EncodeRune(tmp[:], r)

	return append(buf, tmp[:n]...)
}
