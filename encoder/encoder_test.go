package encoder

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/record"
	"github.com/stretchr/testify/require"
)

// traceHandler renders every event a record.Parser dispatches into a flat
// list of strings, resolving dict-refs against the shared dictionary at the
// moment they fire so the trace reads like the decoded JSON shape.
type traceHandler struct {
	record.NoopEvents
	d     *dict.Dictionary
	trace []string
}

func (h *traceHandler) OnNull(int64) { h.trace = append(h.trace, "null") }
func (h *traceHandler) OnBool(pos int64, b bool) {
	h.trace = append(h.trace, fmt.Sprintf("bool:%v", b))
}
func (h *traceHandler) OnInt(pos int64, i int64) { h.trace = append(h.trace, fmt.Sprintf("int:%d", i)) }
func (h *traceHandler) OnUint(pos int64, u uint64) {
	h.trace = append(h.trace, fmt.Sprintf("uint:%d", u))
}
func (h *traceHandler) OnDouble(pos int64, f float64) {
	h.trace = append(h.trace, fmt.Sprintf("double:%v", f))
}
func (h *traceHandler) OnTime(pos int64, n int64) {
	h.trace = append(h.trace, fmt.Sprintf("time:%d", n))
}
func (h *traceHandler) OnDictRef(pos int64, idx int) {
	s, err := h.d.At(idx)
	if err != nil {
		h.trace = append(h.trace, "dictref:<invalid>")

		return
	}
	h.trace = append(h.trace, "ref:"+s)
}
func (h *traceHandler) OnStringStart(int64, int) { h.trace = append(h.trace, "str-open") }
func (h *traceHandler) OnStringFragment(frag []byte) {
	h.trace[len(h.trace)-1] += ":" + string(frag)
}
func (h *traceHandler) OnStringEnd()   {}
func (h *traceHandler) OnObjectStart() { h.trace = append(h.trace, "{") }
func (h *traceHandler) OnObjectEnd()   { h.trace = append(h.trace, "}") }
func (h *traceHandler) OnArrayStart()  { h.trace = append(h.trace, "[") }
func (h *traceHandler) OnArrayEnd()    { h.trace = append(h.trace, "]") }

func decodeAll(t *testing.T, data []byte) []string {
	t.Helper()
	src := bytesource.NewReaderSource(bytes.NewReader(data), "<test>")
	d := dict.New(0)
	h := &traceHandler{d: d}
	p := record.New(src, d, h)
	require.NoError(t, p.ParseStream())

	return h.trace
}

func TestEncoder_S1_RepeatedKeyUsesDictRef(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 0, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		err := enc.Encode(func(em *Emitter) error {
			em.StartMap()
			em.Key("k")
			em.String("v", Auto)
			em.EndMap()

			return nil
		})
		require.NoError(t, err)
	}

	trace := decodeAll(t, out.Bytes())
	require.Equal(t, []string{
		"{", "ref:k", "str-open:v", "}",
		"{", "ref:k", "str-open:v", "}",
	}, trace)
}

func TestEncoder_RoundTrip_AllScalarTypes(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 0, 0)
	require.NoError(t, err)

	err = enc.Encode(func(em *Emitter) error {
		em.StartArray()
		em.Null()
		em.Bool(true)
		em.Bool(false)
		em.Int(-7)
		em.Uint(7)
		em.Double(3.5)
		em.Time(123456789)
		em.String("inline", ForceNoIntern)
		em.EndArray()

		return nil
	})
	require.NoError(t, err)

	trace := decodeAll(t, out.Bytes())
	require.Equal(t, []string{
		"[", "null", "bool:true", "bool:false", "int:-7", "uint:7",
		"double:3.5", "time:123456789", "str-open:inline", "]",
	}, trace)
}

func TestEncoder_ForceIntern_PromotesImmediately(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 0, 0)
	require.NoError(t, err)

	err = enc.Encode(func(em *Emitter) error {
		em.String("high-value-id", ForceIntern)

		return nil
	})
	require.NoError(t, err)

	trace := decodeAll(t, out.Bytes())
	require.Equal(t, []string{"ref:high-value-id"}, trace)
}

func TestEncoder_AutoString_PromotesAfterThreshold(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 0, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := enc.Encode(func(em *Emitter) error {
			em.String("repeated", Auto)

			return nil
		})
		require.NoError(t, err)
	}

	trace := decodeAll(t, out.Bytes())
	require.Equal(t, []string{
		"str-open:repeated", "str-open:repeated", "ref:repeated",
	}, trace)
}

func TestEncoder_SoftCapOverflow_EmitsDictClear(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 2, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		err := enc.Encode(func(em *Emitter) error {
			em.StartMap()
			em.Key(key)
			em.Int(int64(i))
			em.EndMap()

			return nil
		})
		require.NoError(t, err)
	}

	// Every record must still decode cleanly even though the dictionary
	// was cleared and rebuilt partway through.
	trace := decodeAll(t, out.Bytes())
	require.Len(t, trace, 5*4)
}

func TestEncoder_StatsTracksRecords(t *testing.T) {
	var out bytes.Buffer
	enc, err := New(&out, "test", 0, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := enc.Encode(func(em *Emitter) error {
			em.Int(int64(i))

			return nil
		})
		require.NoError(t, err)
	}

	require.Equal(t, 3, enc.Stats().Records)
}
