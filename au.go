// Package au provides a high-performance, streaming binary format for
// dictionary-encoded, record-oriented event logs.
//
// Au is optimized for logs where many records repeat the same small set of
// object keys and string values: a string-interning dictionary shared
// across records lets repeated values cost a few bytes of back-reference
// instead of their full length, while still letting a consumer read the
// stream strictly forward, one record at a time, without buffering the
// whole file.
//
// # Core Features
//
//   - Append-only string dictionary shared by every record in a stream
//   - Pull-parser event model (package value) for decoding one value at a
//     time without building an intermediate tree
//   - Streaming encoder (package encoder) with automatic promote-to-dictionary
//     interning based on observed reference counts
//   - grep with before/after context and an optional binary-search bisect
//     mode for logs whose records are ordered by a monotonic field
//   - tail-style resynchronization (package tail) for seeking to an
//     arbitrary byte offset and recovering record framing from there
//   - JSON rendering (package jsonout) in both directions
//
// # Basic Usage
//
// Encoding records:
//
//	w, _ := os.Create("events.au")
//	enc, _ := au.NewEncoder(w, "")
//	enc.Encode(func(em *encoder.Emitter) error {
//	    em.StartMap()
//	    em.Key("level")
//	    em.String("info", encoder.ForceNoIntern)
//	    em.EndMap()
//	    return nil
//	})
//
// Decoding records as JSON:
//
//	f, _ := os.Open("events.au")
//	d, _ := au.NewDecoder(f)
//	d.WriteJSON(os.Stdout)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the lower-level
// packages (record, value, encoder, dict, jsonout, grep, bisect, tail). For
// fine-grained control — a custom value.Handler, a grep.Pattern built from
// scratch, direct bytesource.Source access for resync — use those packages
// directly; cmd/au's cat and json2au subcommands use this facade, while its
// grep, stats and tail subcommands use those packages directly.
package au

import (
	"io"
	"os"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/encoder"
	"github.com/austream/au/jsonout"
	"github.com/austream/au/record"
)

// DefaultMetadata is the header metadata string this module's encoder
// writes when the caller doesn't supply one, identifying the writer the
// way the original format's Writer header field does.
const DefaultMetadata = "au-go/1"

// NewEncoder creates an encoder.Encoder writing to w with
// encoder.DefaultSoftCap and encoder.DefaultInternThreshold. An empty
// metadata string is replaced with DefaultMetadata.
func NewEncoder(w io.Writer, metadata string) (*encoder.Encoder, error) {
	if metadata == "" {
		metadata = DefaultMetadata
	}

	return encoder.New(w, metadata, 0, 0)
}

// Decoder bundles a record.Parser with the dictionary it's decoding
// against, for callers that just want to read one Au stream forward
// without juggling the pieces themselves.
type Decoder struct {
	src  bytesource.Source
	dict *dict.Dictionary
}

// NewDecoder wraps r in a bytesource.FileSource (if it's an *os.File, so
// seek-back and bisect/tail work) or a bytesource.ReaderSource otherwise,
// paired with a fresh dict.Dictionary; Parser builds record parsers over it.
func NewDecoder(r io.Reader) (*Decoder, error) {
	var src bytesource.Source
	if f, ok := r.(*os.File); ok {
		src = bytesource.NewFileSource(f, f.Name())
	} else {
		src = bytesource.NewReaderSource(r, "")
	}

	return &Decoder{src: src, dict: dict.New(0)}, nil
}

// Dictionary returns the dictionary this decoder maintains as it parses,
// shared with any handler the caller drives manually via Parser.
func (d *Decoder) Dictionary() *dict.Dictionary { return d.dict }

// Parser returns a record.Parser reading this decoder's source and
// dispatching to handler, sharing this decoder's dictionary. Each call
// builds a fresh parser bound to the same underlying cursor position, so
// callers that want to switch handlers mid-stream (e.g. jsonout for most
// records, a custom handler for a few) can do so between records.
func (d *Decoder) Parser(handler record.Handler) *record.Parser {
	return record.New(d.src, d.dict, handler)
}

// WriteJSON decodes every record to EOF and writes it as canonical JSON to
// w, one line per top-level value.
func (d *Decoder) WriteJSON(w io.Writer) error {
	h := jsonout.NewHandler(w)
	h.SetDictionary(d.dict)
	parser := d.Parser(h)

	for {
		h.BeginValue()
		ok, err := parser.ParseUntilValue()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		h.EndValue()
		if err := h.Flush(); err != nil {
			return err
		}
	}

	return nil
}
