package record

import "github.com/austream/au/value"

// Handler receives record-level events in addition to the value.Handler
// events a value record's payload produces. Most consumers only care about
// values; embed NoopEvents to satisfy the dict/header callbacks trivially.
type Handler interface {
	value.Handler

	OnHeader(pos int64, version int, metadata string)
	OnDictClear(pos int64)
	OnDictAdd(pos int64, strs []string)
}

// NoopEvents implements Handler's record-level callbacks as no-ops, for
// consumers (grep, jsonout, stats) that only care about value events and
// let the Parser maintain the dictionary on their behalf.
type NoopEvents struct{}

func (NoopEvents) OnHeader(int64, int, string) {}
func (NoopEvents) OnDictClear(int64)           {}
func (NoopEvents) OnDictAdd(int64, []string)   {}
