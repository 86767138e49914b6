package gelf

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// getCaller returns the file and line callDepth stack frames above the
// caller, skipping frames whose file path ends in any of the given suffixes.
// Returns "???", 0 when the stack is exhausted.
func getCaller(callDepth int, suffixesToIgnore ...string) (string, int) {
	// +1 to skip this frame
	callDepth++

	for {
		_, file, line, ok := runtime.Caller(callDepth)
		if !ok {
			return "???", 0
		}

		skip := false
		for _, s := range suffixesToIgnore {
			if strings.HasSuffix(file, s) {
				skip = true
				break
			}
		}
		if !skip {
			return file, line
		}
		callDepth++
	}
}

// getCallerIgnoringLogMulti walks past the standard library's log package and
// io.MultiWriter frames, so a Client installed via log.SetOutput reports the
// real log statement as the source.
func getCallerIgnoringLogMulti(callDepth int) (string, int) {
	// +1 to skip this frame
	return getCaller(callDepth+1, "log/log.go", "io/multi.go")
}

// stackTracer is the interface github.com/pkg/errors values expose their
// stack through.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorTrace extracts the stack trace carried by an error created or wrapped
// with github.com/pkg/errors, along with the file and line of the origin
// frame. It walks the unwrap chain and keeps the deepest trace found, which
// is the frame closest to where the error was first created.
func errorTrace(err error) (trace, file string, line int, ok bool) {
	var st pkgerrors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, found := e.(stackTracer); found {
			st = t.StackTrace()
			ok = true
		}
	}
	if !ok {
		return "", "", 0, false
	}

	trace = fmt.Sprintf("%+v", err)

	if len(st) > 0 {
		// a Frame is a program counter + 1
		pc := uintptr(st[0]) - 1
		if fn := runtime.FuncForPC(pc); fn != nil {
			file, line = fn.FileLine(pc)
		}
	}

	return trace, file, line, true
}
