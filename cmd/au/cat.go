package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/austream/au"
)

func runCat(args []string) error {
	flagSet := pflag.NewFlagSet("cat", pflag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return usageErrorf("usage: au cat <file>")
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return ioErrorf("%v", err)
	}
	defer f.Close()

	dec, err := au.NewDecoder(f)
	if err != nil {
		return ioErrorf("%v", err)
	}

	if err := dec.WriteJSON(os.Stdout); err != nil {
		return ioErrorf("%v", err)
	}

	return nil
}
