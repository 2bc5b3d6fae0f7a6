package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/austream/au/bisect"
	"github.com/austream/au/dict"
	"github.com/austream/au/grep"
	"github.com/austream/au/tail"
)

// grepTimeLayout is the timestamp format accepted by -t (no timezone
// suffix; intervals are specified in the file's own local/UTC
// convention).
const grepTimeLayout = "2006-01-02T15:04:05"

var grepEpoch = time.Unix(0, 0).UTC()

func parseGrepTime(s string) (time.Duration, error) {
	t, err := time.Parse(grepTimeLayout, s)
	if err != nil {
		return 0, err
	}

	return t.Sub(grepEpoch), nil
}

func runGrep(args []string) error {
	flagSet := pflag.NewFlagSet("grep", pflag.ContinueOnError)
	key := flagSet.StringP("key", "k", "", "match only values under this object key")
	intVal := flagSet.Int64P("int", "i", 0, "match this int64 value")
	hasInt := flagSet.Lookup("int")
	uintVal := flagSet.Uint64P("uint", "u", 0, "match this uint64 value")
	doubleVal := flagSet.Float64P("double", "d", 0, "match this float64 value")
	strVal := flagSet.StringP("str", "s", "", "match this substring")
	strFullVal := flagSet.StringP("Str", "S", "", "match this string exactly")
	timeRange := flagSet.StringP("time", "t", "", "START[,END] timestamp interval")
	numMatches := flagSet.Uint32P("num-matches", "m", 0, "stop after this many matches")
	before := flagSet.Uint32P("before-context", "B", 0, "records of context before a match")
	after := flagSet.Uint32P("after-context", "A", 0, "records of context after a match")
	around := flagSet.Uint32P("context", "C", 0, "records of context before and after a match")
	count := flagSet.BoolP("count", "c", false, "print only the match count")
	useBisect := flagSet.BoolP("bisect", "b", false, "binary-search instead of scanning linearly")

	if err := flagSet.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return usageErrorf("usage: au grep [flags] <file>")
	}

	opts := []grep.Option{}
	if *key != "" {
		opts = append(opts, grep.WithKey(*key))
	}
	if hasInt.Changed {
		opts = append(opts, grep.WithInt(*intVal))
	}
	if flagSet.Lookup("uint").Changed {
		opts = append(opts, grep.WithUint(*uintVal))
	}
	if flagSet.Lookup("double").Changed {
		opts = append(opts, grep.WithDouble(*doubleVal))
	}
	if *strVal != "" {
		opts = append(opts, grep.WithString(*strVal, false))
	}
	if *strFullVal != "" {
		opts = append(opts, grep.WithString(*strFullVal, true))
	}
	if *timeRange != "" {
		parts := strings.SplitN(*timeRange, ",", 2)
		start, err := parseGrepTime(parts[0])
		if err != nil {
			return usageErrorf("invalid -t start: %v", err)
		}
		end := start + time.Nanosecond
		if len(parts) == 2 {
			end, err = parseGrepTime(parts[1])
			if err != nil {
				return usageErrorf("invalid -t end: %v", err)
			}
		}
		opts = append(opts, grep.WithTimeRange(start, end))
	}
	if *numMatches > 0 {
		opts = append(opts, grep.WithNumMatches(*numMatches))
	}
	beforeN, afterN := *before, *after
	if *around > 0 {
		beforeN, afterN = *around, *around
	}
	if beforeN > 0 {
		opts = append(opts, grep.WithBeforeContext(beforeN))
	}
	if afterN > 0 {
		opts = append(opts, grep.WithAfterContext(afterN))
	}
	if *count {
		opts = append(opts, grep.WithCount())
	}
	if *useBisect {
		opts = append(opts, grep.WithBisect())
	}

	pattern, err := grep.New(opts...)
	if err != nil {
		return usageErrorf("%v", err)
	}

	f, err := tail.Open(rest[0])
	if err != nil {
		return ioErrorf("%v", err)
	}

	d := dict.New(0)

	if pattern.Bisect() {
		_, err = bisect.Run(f, d, pattern, os.Stdout)
	} else {
		drv := grep.NewDriver(f.Source(), d, pattern, os.Stdout)
		_, err = drv.Run()
	}
	if err != nil {
		return ioErrorf("%v", err)
	}

	return nil
}
