package app

import (
	"sync/atomic"

	"kestrel/kestrel/kernel"
)

const (
	consolePeriod = 20

	// ConsoleFault is the application error raised on request.
	ConsoleFault kernel.Fault = 0xE001
)

// console is a high priority task serving requests made from outside the
// machine, such as keys pressed on the host terminal.
type console struct {
	s *System

	print atomic.Bool
	raise atomic.Bool
}

func (c *console) run(any) {
	c.labelAll()
	for {
		c.poll()
		c.s.client.Sleep(consolePeriod)
	}
}

func (c *console) poll() {
	if c.print.Swap(false) {
		c.s.mon.RequestPrint()
		c.s.mon.Update(c.s.client.GetTicks())
	}
	if c.raise.Swap(false) {
		c.s.client.RegisterError(ConsoleFault)
	}
}

// labelAll names tasks the app did not create itself, like idle, in the
// trace.
func (c *console) labelAll() {
	if c.s.cfg.Trace == nil {
		return
	}
	for _, t := range c.s.k.Snapshot() {
		if c.s.cfg.Trace.Name(t.ID) != t.Name {
			c.s.label(t.ID, t.Name)
		}
	}
}
