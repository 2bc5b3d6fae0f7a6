package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/austream/au/bytesource"
	"github.com/austream/au/dict"
	"github.com/austream/au/record"
)

// statsHandler counts record kinds and dict-add volume as a stream is
// decoded, discarding every value event. Value records are counted by the
// driving loop's ParseUntilValue return, not by this handler, since
// record.Handler has no dedicated "this was a value record" callback of
// its own.
type statsHandler struct {
	record.NoopEvents

	headers    int
	dictClears int
	dictAdds   int
	internedAt int
}

func (*statsHandler) OnNull(int64)             {}
func (*statsHandler) OnBool(int64, bool)       {}
func (*statsHandler) OnInt(int64, int64)       {}
func (*statsHandler) OnUint(int64, uint64)     {}
func (*statsHandler) OnDouble(int64, float64)  {}
func (*statsHandler) OnTime(int64, int64)      {}
func (*statsHandler) OnDictRef(int64, int)     {}
func (*statsHandler) OnStringStart(int64, int) {}
func (*statsHandler) OnStringFragment([]byte)  {}
func (*statsHandler) OnStringEnd()             {}
func (*statsHandler) OnObjectStart()           {}
func (*statsHandler) OnObjectEnd()             {}
func (*statsHandler) OnArrayStart()            {}
func (*statsHandler) OnArrayEnd()              {}

func (h *statsHandler) OnHeader(int64, int, string) { h.headers++ }
func (h *statsHandler) OnDictClear(int64)           { h.dictClears++ }
func (h *statsHandler) OnDictAdd(_ int64, strs []string) {
	h.dictAdds++
	h.internedAt += len(strs)
}

func runStats(args []string) error {
	flagSet := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return usageErrorf("usage: au stats <file>")
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return ioErrorf("%v", err)
	}
	defer f.Close()

	src := bytesource.NewFileSource(f, rest[0])
	d := dict.New(0)
	h := &statsHandler{}
	parser := record.New(src, d, h)

	values := 0
	for {
		ok, err := parser.ParseUntilValue()
		if err != nil {
			return ioErrorf("%v", err)
		}
		if !ok {
			break
		}
		values++
	}

	fmt.Printf("records: %d\n", h.headers+h.dictClears+h.dictAdds+values)
	fmt.Printf("headers: %d\n", h.headers)
	fmt.Printf("dict_clears: %d\n", h.dictClears)
	fmt.Printf("dict_adds: %d\n", h.dictAdds)
	fmt.Printf("interned_strings: %d\n", h.internedAt)
	fmt.Printf("values: %d\n", values)
	fmt.Printf("dict_size: %d\n", d.Size())
	fmt.Printf("bytes: %d\n", src.Pos())

	return nil
}
