// Command au is a thin CLI shell over the core codec packages: cat, grep,
// stats, tail, and json2au. It exists only to exercise the library from
// the command line; every subcommand is a few lines of flag parsing
// around a core package's already-documented API.
package main

import (
	"fmt"
	"os"
)

var subcommands = map[string]func(args []string) error{
	"cat":     runCat,
	"grep":    runGrep,
	"stats":   runStats,
	"tail":    runTail,
	"json2au": runJSON2Au,
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageErrorf("usage: au <cat|grep|stats|tail|json2au> [flags] [args]")
	}

	cmd, ok := subcommands[args[0]]
	if !ok {
		return usageErrorf("unknown subcommand %q", args[0])
	}

	return cmd(args[1:])
}
