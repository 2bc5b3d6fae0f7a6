package grep

import (
	"time"

	"github.com/austream/au/dict"
	"github.com/austream/au/record"
)

// context identifies what container a handler is currently inside, so it
// can tell whether the next string it sees is a key or a value.
type context uint8

const (
	contextBare context = iota
	contextObject
	contextArray
)

type contextMarker struct {
	kind     context
	counter  int
	checkVal bool
}

// Handler is a value.Handler that tests one record's value against pattern
// and remembers whether it matched. It is built fresh (or reset via
// OnValue) per record so that one Handler instance can be reused across an
// entire stream without reallocating its context stack.
//
// Its Context-stack state machine is a direct transliteration of the
// original GrepHandler.h: an OBJECT context's even-numbered child is a key,
// the odd-numbered child that follows is that key's value, and checkVal
// propagates down through arrays so a pattern can match any element.
type Handler struct {
	record.NoopEvents

	pattern *Pattern
	dict    *dict.Dictionary

	str     []byte
	matched bool

	// less reports that this record's checked value is strictly below the
	// pattern's corresponding bound. It only inspects scalar comparisons
	// the matched field happened to use, and is a known-incomplete signal;
	// bisect's binary search still relies on it to find a starting region.
	less bool

	context []contextMarker
}

// NewHandler creates a Handler bound to pattern. dict is set per-call via
// OnValue since it can change out from under a long-lived grep driver
// (e.g. after a dict-clear record).
func NewHandler(pattern *Pattern) *Handler {
	h := &Handler{pattern: pattern}
	h.str = make([]byte, 0, 1<<16)

	return h
}

// Matched reports whether the most recently parsed value matched pattern.
func (h *Handler) Matched() bool { return h.matched }

// RecordPrecedesPattern reports whether the most recently parsed record's
// checked field is strictly less than pattern's bound, used by bisect to
// steer its binary search.
func (h *Handler) RecordPrecedesPattern() bool { return h.less }

// OnValue resets per-record state ahead of parsing the next value.
// Callers (the grep driver, bisect) must call this before each
// value.Parser.Value or record.Parser.ParseUntilValue.
func (h *Handler) OnValue(dictionary *dict.Dictionary) {
	h.dict = dictionary
	h.context = h.context[:0]
	h.context = append(h.context, contextMarker{kind: contextBare, checkVal: !h.pattern.requiresKeyMatch()})
	h.matched = false
	h.less = false
}

func (h *Handler) top() *contextMarker { return &h.context[len(h.context)-1] }

func (h *Handler) isKey() bool {
	c := h.top()

	return c.kind == contextObject && c.counter%2 == 0
}

func (h *Handler) incrCounter() { h.top().counter++ }

func (h *Handler) OnNull(int64) { h.incrCounter() }

func (h *Handler) OnBool(int64, bool) { h.incrCounter() }

func (h *Handler) OnInt(_ int64, value int64) {
	c := h.top()
	if c.checkVal && h.pattern.matchesInt(value) {
		h.matched = true
	}
	if c.checkVal && h.pattern.intPattern != nil && value < *h.pattern.intPattern {
		h.less = true
	}
	h.incrCounter()
}

func (h *Handler) OnUint(_ int64, value uint64) {
	c := h.top()
	if c.checkVal && h.pattern.matchesUint(value) {
		h.matched = true
	}
	if c.checkVal && h.pattern.uintPattern != nil && value < *h.pattern.uintPattern {
		h.less = true
	}
	h.incrCounter()
}

func (h *Handler) OnTime(_ int64, nanos int64) {
	val := time.Duration(nanos)
	c := h.top()
	if c.checkVal && h.pattern.matchesTime(val) {
		h.matched = true
	}
	if c.checkVal && h.pattern.timePattern != nil && val < h.pattern.timePattern.Start {
		h.less = true
	}
	h.incrCounter()
}

func (h *Handler) OnDouble(_ int64, value float64) {
	c := h.top()
	if c.checkVal && h.pattern.matchesDouble(value) {
		h.matched = true
	}
	h.incrCounter()
}

func (h *Handler) OnDictRef(_ int64, idx int) {
	s, err := h.dict.At(idx)
	if err == nil {
		h.checkString(s)
	}
	h.incrCounter()
}

func (h *Handler) OnObjectStart() {
	h.context = append(h.context, contextMarker{kind: contextObject})
}

func (h *Handler) OnObjectEnd() {
	h.context = h.context[:len(h.context)-1]
	h.incrCounter()
}

func (h *Handler) OnArrayStart() {
	h.context = append(h.context, contextMarker{kind: contextArray, checkVal: h.top().checkVal})
}

func (h *Handler) OnArrayEnd() {
	h.context = h.context[:len(h.context)-1]
	h.incrCounter()
}

func (h *Handler) OnStringStart(_ int64, _ int) {
	if h.pattern.strPattern == nil && !(h.pattern.requiresKeyMatch() && h.isKey()) {
		return
	}
	h.str = h.str[:0]
}

func (h *Handler) OnStringFragment(frag []byte) {
	if h.pattern.strPattern == nil && !(h.pattern.requiresKeyMatch() && h.isKey()) {
		return
	}
	h.str = append(h.str, frag...)
}

func (h *Handler) OnStringEnd() {
	h.checkString(string(h.str))
	h.incrCounter()
}

func (h *Handler) checkString(sv string) {
	if h.isKey() {
		h.top().checkVal = h.pattern.matchesKey(sv)

		return
	}
	if h.top().checkVal && h.pattern.matchesString(sv) {
		h.matched = true
	}
}
