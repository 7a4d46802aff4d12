//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	steps := 0
	err := RunHeadless(context.Background(), func(h HAL) func() error {
		if h.Machine() == nil || h.Logger() == nil {
			t.Fatalf("HAL is missing a machine or logger")
		}
		return func() error { steps++; return nil }
	}, HostConfig{Hz: 500, Ticks: 20, Log: io.Discard})
	if err != nil {
		t.Fatalf("RunHeadless() error = %v", err)
	}
	if steps == 0 {
		t.Fatalf("step never called")
	}
}

func TestRunHeadlessReturnsStepError(t *testing.T) {
	boom := errors.New("boom")
	err := RunHeadless(context.Background(), func(HAL) func() error {
		return func() error { return boom }
	}, HostConfig{Hz: 500, Log: io.Discard})
	if !errors.Is(err, boom) {
		t.Fatalf("RunHeadless() error = %v, want %v", err, boom)
	}
}

func TestRunHeadlessCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := RunHeadless(ctx, func(HAL) func() error { return nil }, HostConfig{Hz: 100, Log: io.Discard})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunHeadless() error = %v, want %v", err, context.DeadlineExceeded)
	}
}
