package grep

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/jsonout"
	"github.com/austream/au/record"
)

// Driver scans src record by record, testing each against a Pattern and
// re-emitting matches (with before/after context) as JSON to out.
//
// This is a direct transliteration of reallyDoGrep:
// a ring buffer of the last before_context+1 record start positions, a pin
// keeping that whole window resident in src's history, and a "force"
// counter that keeps emitting after_context records once a match fires.
type Driver struct {
	src     bytesource.Source
	dict    *dict.Dictionary
	pattern *Pattern
	out     io.Writer

	grepHandler   *Handler
	grepParser    *record.Parser
	outputHandler *jsonout.Handler
	outputParser  *record.Parser
}

// NewDriver creates a Driver reading src (already positioned at the first
// record to scan) and writing matches to out.
func NewDriver(src bytesource.Source, dictionary *dict.Dictionary, pattern *Pattern, out io.Writer) *Driver {
	grepHandler := NewHandler(pattern)
	outputHandler := jsonout.NewHandler(out)
	outputHandler.SetDictionary(dictionary)

	return &Driver{
		src:           src,
		dict:          dictionary,
		pattern:       pattern,
		out:           out,
		grepHandler:   grepHandler,
		grepParser:    record.New(src, dictionary, grepHandler),
		outputHandler: outputHandler,
		outputParser:  record.New(src, dictionary, outputHandler),
	}
}

// Run scans to EOF (or to pattern's numMatches/scanSuffixAmount bound,
// whichever comes first), returning the number of records matched. When
// pattern.count is set, no records are written to out; Run writes only the
// total, on one line, and returns it.
func (d *Driver) Run() (int, error) {
	effectiveBefore, effectiveAfter := d.pattern.beforeContext, d.pattern.afterContext
	if d.pattern.count {
		effectiveBefore, effectiveAfter = 0, 0
	}

	maxBuffered := int(effectiveBefore) + 1
	posBuffer := make([]int64, 0, maxBuffered)
	force := uint32(0)
	total := 0
	matchPos := d.src.Pos()

	numMatches := uint32(math.MaxUint32)
	if d.pattern.numMatches != nil {
		numMatches = *d.pattern.numMatches
	}
	suffixLength := int64(math.MaxInt64)
	if d.pattern.scanSuffixAmount != nil {
		suffixLength = *d.pattern.scanSuffixAmount
	}

	for {
		if _, err := d.src.Peek(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return total, err
		}

		if force == 0 {
			if uint32(total) >= numMatches {
				break
			}
			if d.src.Pos()-matchPos > suffixLength {
				break
			}
		}

		if len(posBuffer) == maxBuffered {
			copy(posBuffer, posBuffer[1:])
			posBuffer = posBuffer[:len(posBuffer)-1]
		}
		posBuffer = append(posBuffer, d.src.Pos())
		d.src.SetPin(posBuffer[0])

		d.grepHandler.OnValue(d.dict)
		ok, err := d.grepParser.ParseUntilValue()
		if err != nil {
			return total, fmt.Errorf("grep: %w", err)
		}
		if !ok {
			break
		}

		switch {
		case d.grepHandler.Matched() && uint32(total) < numMatches:
			matchPos = posBuffer[len(posBuffer)-1]
			total++
			if d.pattern.count {
				continue
			}
			if err := d.src.Seek(posBuffer[0]); err != nil {
				return total, err
			}
			for range posBuffer {
				if err := d.emitOne(); err != nil {
					return total, err
				}
			}
			posBuffer = posBuffer[:0]
			d.src.ClearPin()
			force = effectiveAfter
		case force > 0:
			if err := d.src.Seek(posBuffer[len(posBuffer)-1]); err != nil {
				return total, err
			}
			if err := d.emitOne(); err != nil {
				return total, err
			}
			force--
		}
	}

	if d.pattern.count {
		fmt.Fprintln(d.out, total)
	}

	return total, nil
}

func (d *Driver) emitOne() error {
	d.outputHandler.BeginValue()
	if _, err := d.outputParser.ParseUntilValue(); err != nil {
		return err
	}
	d.outputHandler.EndValue()

	return d.outputHandler.Flush()
}
