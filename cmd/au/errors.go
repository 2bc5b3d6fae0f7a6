package main

import "fmt"

// exitError signals a specific process exit code without main re-wrapping
// the message. code 1 is an argument/usage error; code 2 is an IO or parse
// error; any other value is a parse error's own code propagated verbatim.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func usageErrorf(format string, args ...any) *exitError {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

func ioErrorf(format string, args ...any) *exitError {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}
