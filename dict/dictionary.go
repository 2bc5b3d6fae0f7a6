// Package dict implements the append-only string table shared by every
// record in a stream. Indices are stable within an epoch (the span between
// two Clear calls) and are invalidated by the next Clear, matching the
// record framing in package record.
package dict

import "github.com/austream/au/errs"

// Dictionary is an ordered, append-only table of interned strings. The zero
// value is not usable; construct one with New.
type Dictionary struct {
	entries      []string
	reverse      map[string]int
	lastEventPos int64
}

// New creates an empty Dictionary. capacityHint sizes the initial backing
// storage; pass 0 for no hint.
func New(capacityHint int) *Dictionary {
	return &Dictionary{
		entries: make([]string, 0, capacityHint),
		reverse: make(map[string]int, capacityHint),
	}
}

// Clear resets the dictionary to empty, beginning a new epoch. pos is the
// absolute stream position of the dict-clear record, recorded as the new
// last-event position.
func (d *Dictionary) Clear(pos int64) {
	d.entries = d.entries[:0]
	for k := range d.reverse {
		delete(d.reverse, k)
	}
	d.lastEventPos = pos
}

// Append adds s to the dictionary and returns its index. pos is the
// absolute stream position of the dict-add (or header) record that carried
// it, which becomes the new last-event position.
func (d *Dictionary) Append(s string, pos int64) int {
	idx := len(d.entries)
	d.entries = append(d.entries, s)
	if _, exists := d.reverse[s]; !exists {
		d.reverse[s] = idx
	}
	d.lastEventPos = pos

	return idx
}

// At returns the string at idx.
func (d *Dictionary) At(idx int) (string, error) {
	if idx < 0 || idx >= len(d.entries) {
		return "", errs.ErrDictIndexOutOfRange
	}

	return d.entries[idx], nil
}

// IndexOf returns the index of s if it was appended in the current epoch.
func (d *Dictionary) IndexOf(s string) (int, bool) {
	idx, ok := d.reverse[s]

	return idx, ok
}

// Size returns the number of entries in the current epoch.
func (d *Dictionary) Size() int {
	return len(d.entries)
}

// LastEventPos returns the absolute stream position of the most recent
// dict-clear, dict-add, or header record, against which back-offsets on
// subsequent records are validated.
func (d *Dictionary) LastEventPos() int64 {
	return d.lastEventPos
}

// SetLastEventPos overrides the last-event position without touching any
// entries. Used by the record parser when replaying a header record, which
// also governs back-offsets but adds no strings.
func (d *Dictionary) SetLastEventPos(pos int64) {
	d.lastEventPos = pos
}

// Snapshot is an opaque capture of a Dictionary's state, produced by
// Snapshot and consumed by Restore.
type Snapshot struct {
	entries      []string
	reverse      map[string]int
	lastEventPos int64
}

// Snapshot captures the dictionary's current entries, reverse index, and
// last event position, so that a tentative sequence of Append/Clear/
// SetLastEventPos calls can be undone later with Restore if it turns out to
// have been wrong.
func (d *Dictionary) Snapshot() Snapshot {
	entries := make([]string, len(d.entries))
	copy(entries, d.entries)

	reverse := make(map[string]int, len(d.reverse))
	for k, v := range d.reverse {
		reverse[k] = v
	}

	return Snapshot{entries: entries, reverse: reverse, lastEventPos: d.lastEventPos}
}

// Restore replaces the dictionary's entries, reverse index, and last event
// position with those captured in snap, discarding any Append, Clear, or
// SetLastEventPos calls made since snap was taken.
func (d *Dictionary) Restore(snap Snapshot) {
	d.entries = snap.entries
	d.reverse = snap.reverse
	d.lastEventPos = snap.lastEventPos
}
