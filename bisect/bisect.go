// Package bisect implements a binary search over a seekable Au stream for
// the first record whose checked field falls inside a grep Pattern's
// interval, assuming that field is monotonically non-decreasing across the
// stream, followed by a bounded linear grep scan to cover the region the
// search narrowed down to. It's a direct transliteration of doBisect.
package bisect

import (
	"io"

	"github.com/austream/au/dict"
	"github.com/austream/au/errs"
	"github.com/austream/au/grep"
	"github.com/austream/au/tail"
)

// SCANThreshold is the remaining search-window size below which bisect
// switches from binary search to a linear scan. A package var rather than
// a const so tests can shrink it (and PrefixAmount/SuffixAmount) instead
// of constructing multi-hundred-kilobyte fixtures to exercise convergence.
var SCANThreshold int64 = 256 * 1024

// PrefixAmount is how far before the binary search's final lower bound the
// linear scan starts, to guarantee it covers the record search missed by
// landing mid-record.
var PrefixAmount int64 = 512 * 1024

// SuffixAmount bounds how far past its starting point, or past its most
// recent match, the final linear scan keeps looking before giving up. It must exceed PrefixAmount+SCANThreshold
// so the scan is guaranteed to cover the entire region the binary search
// narrowed down to, plus some slack.
var SuffixAmount int64 = SCANThreshold + PrefixAmount + 266*1024

func init() {
	checkInvariant()
}

// checkInvariant panics unless SuffixAmount > PrefixAmount+SCANThreshold.
// CheckInvariant exports it for tests that override the three vars.
func checkInvariant() {
	if SuffixAmount <= PrefixAmount+SCANThreshold {
		panic("bisect: SuffixAmount invariant violated")
	}
}

// CheckInvariant re-validates the SCANThreshold/PrefixAmount/SuffixAmount
// invariant; call it after overriding those vars for a smaller test scale.
func CheckInvariant() { checkInvariant() }

// Run binary-searches src (which must be IsSeekable) for the region
// containing pattern's first match, then resyncs there and runs an
// ordinary grep.Driver linear scan bounded by SuffixAmount, writing
// matches as JSON to out. It returns the number of records matched, same
// as grep.Driver.Run.
func Run(src *tail.Follower, dictionary *dict.Dictionary, pattern *grep.Pattern, out io.Writer) (int, error) {
	start, err := locate(src, dictionary, pattern)
	if err != nil {
		return 0, err
	}

	if err := src.SeekSync(start, dictionary); err != nil {
		return 0, err
	}

	drv := grep.NewDriver(src.Source(), dictionary, pattern.BoundedTo(SuffixAmount), out)

	return drv.Run()
}

// locate runs the binary search described in doBisect, returning the byte
// offset the caller should seek_sync from to begin its linear scan.
func locate(src *tail.Follower, dictionary *dict.Dictionary, pattern *grep.Pattern) (int64, error) {
	if !src.IsSeekable() {
		return 0, errs.ErrNotSeekable
	}

	end, err := src.EndPos()
	if err != nil {
		return 0, err
	}

	start := int64(0)
	grepHandler := grep.NewHandler(pattern)

	for end > start {
		if end-start <= SCANThreshold {
			break
		}

		mid := start + (end-start)/2
		if err := src.SeekSync(mid, dictionary); err != nil {
			return 0, err
		}

		sor := src.Pos()
		grepHandler.OnValue(dictionary)
		parser := src.RecordParser(dictionary, grepHandler)
		ok, err := parser.ParseUntilValue()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}

		if grepHandler.RecordPrecedesPattern() {
			start = sor
		} else {
			end = sor
		}
	}

	if start > PrefixAmount {
		return start - PrefixAmount, nil
	}

	return 0, nil
}
