//go:build !tinygo

package kernel

import (
	"bytes"
	"runtime/debug"
)

// maxStackCapture bounds the trace attached to a PanicInfo.
const maxStackCapture = 4096

func captureStack() []byte {
	s := debug.Stack()
	if len(s) <= maxStackCapture {
		return s
	}
	s = s[:maxStackCapture]
	if i := bytes.LastIndexByte(s, '\n'); i > 0 {
		s = s[:i+1]
	}
	return s
}
