package stack

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// New wraps err with the call stack of the caller, skipping skip frames.
func New(err error, skip int) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	return &stackError{err: err, pcs: pcs[:n]}
}

type stackError struct {
	err error
	pcs []uintptr
}

func (e *stackError) Error() string { return e.err.Error() }

func (e *stackError) Unwrap() error { return e.err }

func (e *stackError) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			_, _ = f.Write([]byte(e.err.Error()))
			_, _ = f.Write([]byte(e.stack()))
			return
		}
		fallthrough
	case 's':
		_, _ = f.Write([]byte(e.err.Error()))
	}
}

func (e *stackError) stack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		frame, more := frames.Next()
		sb.WriteString("\n\t")
		sb.WriteString(frame.Function)
		sb.WriteString(" ")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}
