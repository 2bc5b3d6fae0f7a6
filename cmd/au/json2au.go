package main

import (
	"bufio"
	"os"

	"github.com/spf13/pflag"

	"github.com/austream/au"
	"github.com/austream/au/jsonout"
)

func runJSON2Au(args []string) error {
	flagSet := pflag.NewFlagSet("json2au", pflag.ContinueOnError)
	output := flagSet.StringP("output", "o", "", "write the Au stream here instead of stdout")
	if err := flagSet.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	rest := flagSet.Args()

	var in *os.File
	switch len(rest) {
	case 0:
		in = os.Stdin
	case 1:
		var err error
		in, err = os.Open(rest[0])
		if err != nil {
			return ioErrorf("%v", err)
		}
		defer in.Close()
	default:
		return usageErrorf("usage: au json2au [-o output] [input.json]")
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return ioErrorf("%v", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)

	enc, err := au.NewEncoder(w, "")
	if err != nil {
		return ioErrorf("%v", err)
	}

	if err := jsonout.New().Encode(in, enc); err != nil {
		return ioErrorf("%v", err)
	}

	if err := w.Flush(); err != nil {
		return ioErrorf("%v", err)
	}

	return nil
}
