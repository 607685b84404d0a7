// Package recovery turns a panic into a logged stack trace and a non-zero exit.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// ExitCode is the process status after a recovered panic
const ExitCode = 1

var (
	output io.Writer = os.Stderr
	exit             = os.Exit
)

// HandlePanic must be deferred directly, at the top of main() or a goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		fail(r, nil)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup step run before exiting, such as
// closing the capture device so the sound card is released.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fail(r, cleanup)
	}
}

func fail(r interface{}, cleanup func()) {
	report(output, r, debug.Stack())
	if cleanup != nil {
		runCleanup(cleanup)
	}
	exit(ExitCode)
}

// runCleanup reports a panicking cleanup instead of letting it escape.
func runCleanup(cleanup func()) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(output, "cleanup failed: %v\n", r)
		}
	}()
	cleanup()
}

func report(w io.Writer, r interface{}, stack []byte) {
	_, _ = fmt.Fprintf(w, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
}
