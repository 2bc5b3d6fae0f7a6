// Package grep implements a streaming ValueHandler that tests every record
// in an Au stream against a Pattern, and a driver loop that re-emits
// matching records (with optional surrounding context) as JSON.
package grep

import (
	"strings"
	"time"

	"github.com/austream/au/errs"
	"github.com/austream/au/internal/options"
)

// StrPattern matches a string value either exactly or as a substring.
type StrPattern struct {
	Pattern   string
	FullMatch bool
}

// TimeRange matches a half-open interval [Start, End) of nanoseconds since
// the Unix epoch.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// Pattern describes what reallyDoGrep is looking for. At most one of the
// scalar patterns typically applies to a given record's matched field, but
// nothing prevents setting several; a record matches if any configured
// predicate matches its checked field.
type Pattern struct {
	keyPattern    *string
	intPattern    *int64
	uintPattern   *uint64
	doublePattern *float64
	strPattern    *StrPattern
	timePattern   *TimeRange

	numMatches       *uint32
	scanSuffixAmount *int64
	beforeContext    uint32
	afterContext     uint32
	bisect           bool
	count            bool
}

// Option configures a Pattern at construction time.
type Option = options.Option[*Pattern]

// New builds a Pattern from opts.
func New(opts ...Option) (*Pattern, error) {
	p := &Pattern{}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

// WithKey restricts matching to values found under this object key.
func WithKey(key string) Option {
	return options.NoError(func(p *Pattern) { p.keyPattern = &key })
}

// WithInt matches a scalar int64 value.
func WithInt(v int64) Option {
	return options.NoError(func(p *Pattern) { p.intPattern = &v })
}

// WithUint matches a scalar uint64 value.
func WithUint(v uint64) Option {
	return options.NoError(func(p *Pattern) { p.uintPattern = &v })
}

// WithDouble matches a scalar float64 value.
func WithDouble(v float64) Option {
	return options.NoError(func(p *Pattern) { p.doublePattern = &v })
}

// WithString matches a string value, exactly if fullMatch else as a
// substring.
func WithString(pattern string, fullMatch bool) Option {
	return options.NoError(func(p *Pattern) {
		p.strPattern = &StrPattern{Pattern: pattern, FullMatch: fullMatch}
	})
}

// WithTimeRange matches a timestamp value in the half-open interval
// [start, end).
func WithTimeRange(start, end time.Duration) Option {
	return options.New(func(p *Pattern) error {
		if end <= start {
			return errs.ErrInvalidPattern
		}
		p.timePattern = &TimeRange{Start: start, End: end}

		return nil
	})
}

// WithNumMatches stops the grep driver after n matches.
func WithNumMatches(n uint32) Option {
	return options.NoError(func(p *Pattern) { p.numMatches = &n })
}

// WithScanSuffixAmount bounds how far past the last match the driver keeps
// scanning before giving up; bisect sets this to cover its search window.
func WithScanSuffixAmount(n int64) Option {
	return options.NoError(func(p *Pattern) { p.scanSuffixAmount = &n })
}

// WithBeforeContext emits n records preceding each match.
func WithBeforeContext(n uint32) Option {
	return options.NoError(func(p *Pattern) { p.beforeContext = n })
}

// WithAfterContext emits n records following each match.
func WithAfterContext(n uint32) Option {
	return options.NoError(func(p *Pattern) { p.afterContext = n })
}

// WithBisect tells the driver to binary-search for the first match instead
// of scanning linearly from the start of the file.
func WithBisect() Option {
	return options.NoError(func(p *Pattern) { p.bisect = true })
}

// WithCount tells the driver to print only the number of matches, disabling
// context.
func WithCount() Option {
	return options.NoError(func(p *Pattern) { p.count = true })
}

// Bisect reports whether WithBisect was set, telling the caller (cmd/au) to
// route through bisect.Run instead of a plain linear grep.Driver scan.
func (p *Pattern) Bisect() bool { return p.bisect }

// BoundedTo returns a shallow copy of p with scanSuffixAmount overridden.
// bisect uses this to bound the final linear scan to the uncertainty
// window its binary search narrowed down to, without disturbing the rest
// of the caller's pattern (key/value predicates, before/after context,
// count mode).
func (p *Pattern) BoundedTo(scanSuffixAmount int64) *Pattern {
	cp := *p
	cp.scanSuffixAmount = &scanSuffixAmount

	return &cp
}

func (p *Pattern) requiresKeyMatch() bool { return p.keyPattern != nil }

func (p *Pattern) matchesKey(key string) bool {
	if p.keyPattern == nil {
		return true
	}

	return *p.keyPattern == key
}

func (p *Pattern) matchesTime(val time.Duration) bool {
	if p.timePattern == nil {
		return false
	}

	return val >= p.timePattern.Start && val < p.timePattern.End
}

func (p *Pattern) matchesUint(val uint64) bool {
	return p.uintPattern != nil && *p.uintPattern == val
}

func (p *Pattern) matchesInt(val int64) bool {
	return p.intPattern != nil && *p.intPattern == val
}

func (p *Pattern) matchesDouble(val float64) bool {
	return p.doublePattern != nil && *p.doublePattern == val
}

func (p *Pattern) matchesString(sv string) bool {
	if p.strPattern == nil {
		return false
	}
	if p.strPattern.FullMatch {
		return p.strPattern.Pattern == sv
	}

	return strings.Contains(sv, p.strPattern.Pattern)
}
