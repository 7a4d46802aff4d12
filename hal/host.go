//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig sizes the simulated machine.
type HostConfig struct {
	// Hz is the frame rate of the host runner. Each frame delivers the
	// SysTicks that elapsed in wall time.
	Hz int
	// Ticks stops the headless runner after this many SysTicks (0 = run
	// until cancelled).
	Ticks uint64

	RAMBase uint32
	RAMSize uint32

	Width  int
	Height int

	// Log receives log lines. Defaults to stdout.
	Log io.Writer

	// OnKey receives characters typed into the window, and KeyEscape.
	OnKey func(r rune)
}

// KeyEscape is passed to OnKey when Escape is pressed.
const KeyEscape rune = 0x1b

func (c *HostConfig) setDefaults() {
	if c.Hz <= 0 {
		c.Hz = 60
	}
	if c.RAMBase == 0 {
		c.RAMBase = DefaultRAMBase
	}
	if c.RAMSize == 0 {
		c.RAMSize = DefaultRAMSize
	}
	if c.Width <= 0 {
		c.Width = 320
	}
	if c.Height <= 0 {
		c.Height = 240
	}
	if c.Log == nil {
		c.Log = os.Stdout
	}
}

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	t      *hostTime
	port   *hostPort
}

// New returns a host HAL implementation.
func New(cfg HostConfig) HAL {
	return newHostHAL(cfg)
}

func newHostHAL(cfg HostConfig) *hostHAL {
	cfg.setDefaults()
	t := newHostTime()
	return &hostHAL{
		logger: &hostLogger{w: cfg.Log},
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		t:      t,
		port:   newHostPort(cfg.RAMBase, cfg.RAMSize, t),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Machine() Machine { return h.port }

func (h *hostHAL) close() { h.port.Close() }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
