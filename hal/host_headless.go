//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// RunHeadless runs the OS without opening a window. newApp is called once
// with the HAL; the returned step function is called after every frame and
// ends the run by returning an error.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HostConfig) error {
	cfg.setDefaults()
	h := newHostHAL(cfg)
	defer h.close()
	step := newApp(h)

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.t.step(1)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			if cfg.Ticks > 0 && h.t.count() >= cfg.Ticks {
				return nil
			}
		}
	}
}
