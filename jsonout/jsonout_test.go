package jsonout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/encoder"
	"github.com/austream/au/record"
	"github.com/stretchr/testify/require"
)

func encodeJSON(t *testing.T, input string) []byte {
	t.Helper()
	var out bytes.Buffer
	enc, err := encoder.New(&out, "test", 0, 0)
	require.NoError(t, err)

	require.NoError(t, New().Encode(strings.NewReader(input), enc))

	return out.Bytes()
}

func decodeToJSON(t *testing.T, auData []byte) string {
	t.Helper()
	src := bytesource.NewReaderSource(bytes.NewReader(auData), "<test>")
	d := dict.New(0)
	var out bytes.Buffer
	h := NewHandler(&out)
	h.SetDictionary(d)

	p := record.New(src, d, h)
	for {
		h.BeginValue()
		ok, err := p.ParseUntilValue()
		require.NoError(t, err)
		if !ok {
			break
		}
		h.EndValue()
	}
	require.NoError(t, h.Flush())

	return out.String()
}

func TestReader_ScalarsAndRoundTrip(t *testing.T) {
	input := `{"a":1,"b":-2,"c":3.5,"d":"hello","e":null,"f":true,"g":[1,2,3]}`
	au := encodeJSON(t, input)
	out := decodeToJSON(t, au)
	require.Equal(t, `{"a":1,"b":-2,"c":3.5,"d":"hello","e":null,"f":true,"g":[1,2,3]}`+"\n", out)
}

func TestReader_TimeStringRecognized(t *testing.T) {
	input := `{"t":"1970-01-01T00:00:01.500000"}`
	au := encodeJSON(t, input)
	out := decodeToJSON(t, au)
	require.Equal(t, `{"t":"1970-01-01T00:00:01.500000"}`+"\n", out)
}

func TestReader_NoInternKeyStillRoundTrips(t *testing.T) {
	input := `{"execId":"abc123","key":"42"}`
	au := encodeJSON(t, input)
	out := decodeToJSON(t, au)
	require.Equal(t, `{"execId":"abc123","key":"42"}`+"\n", out)
}

func TestReader_MultipleTopLevelValues(t *testing.T) {
	input := `1
2
3`
	au := encodeJSON(t, input)
	out := decodeToJSON(t, au)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestHandler_EscapesControlCharsAndQuotes(t *testing.T) {
	input := `{"s":"line1\nline2\t\"quoted\""}`
	au := encodeJSON(t, input)
	out := decodeToJSON(t, au)
	require.Equal(t, input+"\n", out)
}
