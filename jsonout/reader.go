package jsonout

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/austream/au/encoder"
)

// Reader decodes a stream of whitespace/newline-separated JSON values into
// Au records, one encoder.Encoder.Encode call per top-level JSON value. It's the
// Go counterpart of original_source/src/Json2Au.cpp's JsonSaxHandler, built
// on encoding/json.Decoder's token stream instead of a SAX parser.
//
// The disabled toInt_ coercion path (which would have reinterpreted digit
// strings under certain keys as integers) is deliberately not
// implemented; those strings are emitted as strings.
type Reader struct{}

// New creates a Reader.
func New() *Reader { return &Reader{} }

// noInternKeys are the object keys whose value Json2Au.cpp forced inline
// (never interned), because their cardinality made dictionary entries a
// net loss.
var noInternKeys = map[string]bool{
	"estdEventTime": true,
	"logTime":       true,
	"execId":        true,
	"px":            true,
	"key":           true,
	"signed":        true,
	"origFfeKey":    true,
}

const timeLayout = "2006-01-02T15:04:05.000000"

// epochJSON is the Unix epoch in UTC, matching jsonout.Handler's epoch.
var epochJSON = time.Unix(0, 0).UTC()

// Encode reads every JSON value from r and encodes each as one Au record
// via enc.
func (d *Reader) Encode(r io.Reader, enc *encoder.Encoder) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if err := enc.Encode(func(em *encoder.Emitter) error {
			return d.emitToken(dec, em, tok, encoder.Auto)
		}); err != nil {
			return err
		}
	}
}

func (d *Reader) walk(dec *json.Decoder, em *encoder.Emitter, hint encoder.InternHint) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	return d.emitToken(dec, em, tok, hint)
}

func (d *Reader) emitToken(dec *json.Decoder, em *encoder.Emitter, tok json.Token, hint encoder.InternHint) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return d.emitObject(dec, em)
		case '[':
			return d.emitArray(dec, em)
		default:
			return errors.New("jsonout: unexpected closing delimiter")
		}
	case string:
		if ts, ok := parseJSONTime(t); ok {
			em.Time(ts)

			return nil
		}
		em.String(t, hint)

		return nil
	case json.Number:
		return emitNumber(em, t)
	case bool:
		em.Bool(t)

		return nil
	case nil:
		em.Null()

		return nil
	default:
		return errors.New("jsonout: unrecognized token type")
	}
}

func (d *Reader) emitObject(dec *json.Decoder, em *encoder.Emitter) error {
	em.StartMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("jsonout: object key was not a string")
		}
		em.Key(key)

		hint := encoder.Auto
		if noInternKeys[key] {
			hint = encoder.ForceNoIntern
		}
		if err := d.walk(dec, em, hint); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return err
	}
	em.EndMap()

	return nil
}

func (d *Reader) emitArray(dec *json.Decoder, em *encoder.Emitter) error {
	em.StartArray()
	for dec.More() {
		if err := d.walk(dec, em, encoder.Auto); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return err
	}
	em.EndArray()

	return nil
}

func emitNumber(em *encoder.Emitter, n json.Number) error {
	s := string(n)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		em.Int(i)

		return nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		em.Uint(u)

		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	em.Double(f)

	return nil
}

// parseJSONTime matches Json2Au.cpp's tryTime: only strings of exactly the
// "yyyy-mm-ddThh:mm:ss.mmmuuu" length are attempted, and a failed attempt
// falls back to a plain string rather than an error.
func parseJSONTime(s string) (int64, bool) {
	if len(s) != len(timeLayout) {
		return 0, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, false
	}

	return int64(t.Sub(epochJSON)), true
}
