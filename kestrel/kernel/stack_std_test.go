//go:build !tinygo

package kernel

import (
	"bytes"
	"testing"
)

func TestCaptureStackBounded(t *testing.T) {
	var deep func(n int) []byte
	deep = func(n int) []byte {
		if n == 0 {
			return captureStack()
		}
		return deep(n - 1)
	}
	s := deep(200)
	if len(s) == 0 || len(s) > maxStackCapture {
		t.Fatalf("len(captureStack()) = %d, want 1..%d", len(s), maxStackCapture)
	}
	if !bytes.HasSuffix(s, []byte("\n")) {
		t.Fatalf("captureStack() cut mid-line")
	}
}
