package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/austream/au/dict"
	"github.com/austream/au/jsonout"
	"github.com/austream/au/tail"
)

func runTail(args []string) error {
	flagSet := pflag.NewFlagSet("tail", pflag.ContinueOnError)
	follow := flagSet.BoolP("follow", "f", false, "keep watching the file for appended records")
	if err := flagSet.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return usageErrorf("usage: au tail [-f] <file>")
	}

	var f *tail.Follower
	var err error
	if *follow {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		f, err = tail.Open(rest[0], tail.WithFollow(ctx))
	} else {
		f, err = tail.Open(rest[0])
	}
	if err != nil {
		return ioErrorf("%v", err)
	}

	d := dict.New(0)
	h := jsonout.NewHandler(os.Stdout)
	h.SetDictionary(d)

	parser := f.RecordParser(d, h)
	for {
		h.BeginValue()
		ok, err := parser.ParseUntilValue()
		if err != nil {
			return ioErrorf("%v", err)
		}
		if !ok {
			// Clean EOF: either the file really ended (one-shot mode) or
			// -f's wait was cancelled via ctx, which bytesource reports as
			// a plain EOF rather than a distinct cancellation error.
			break
		}
		h.EndValue()
		if err := h.Flush(); err != nil {
			return ioErrorf("%v", err)
		}
	}

	return nil
}
