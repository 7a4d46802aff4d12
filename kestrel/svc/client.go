package svc

import (
	"kestrel/hal"
	"kestrel/kestrel/kernel"
)

// Trapper raises supervisor calls. hal.Machine implements it.
type Trapper interface {
	SupervisorCall(code uint8, regs [4]uint32, stacked ...uint32) (r0, r1 uint32)
}

// Client is the task-side API of the kernel. Every method traps.
// It implements kernel.Syscaller, so lockables created by tasks report
// through it.
type Client struct {
	t       Trapper
	handles *Handles
}

func NewClient(t Trapper, handles *Handles) *Client {
	return &Client{t: t, handles: handles}
}

func (c *Client) call(code Code, r1, r2, r3 uint32, stacked ...uint32) (uint32, uint32) {
	return c.t.SupervisorCall(uint8(code), [4]uint32{0, r1, r2, r3}, stacked...)
}

// StartOS starts scheduling. On hardware it never returns; on the host it
// returns once the calling context has handed the processor to the first
// task.
func (c *Client) StartOS() {
	c.call(StartOS, 0, 0, 0)
}

// CreateTask creates a task and returns its id, or 0 if the kernel could
// not create it.
func (c *Client) CreateTask(entry hal.TaskFunc, arg any, prio kernel.Priority, name string, stackSize uint32) kernel.TaskID {
	var fn any
	if entry != nil {
		fn = entry
	}
	r0, _ := c.call(CreateTask,
		c.handles.Put(fn),
		c.handles.Put(arg),
		uint32(prio),
		c.handles.Put(name),
		stackSize,
	)
	return kernel.TaskID(r0)
}

// Sleep suspends the calling task for ticks ticks.
func (c *Client) Sleep(ticks uint32) {
	c.call(Sleep, ticks, 0, 0)
}

// DestroyTask ends the calling task. It does not return.
func (c *Client) DestroyTask() {
	c.call(DestroyTask, 0, 0, 0)
}

func (c *Client) Yield() {
	c.call(Yield, 0, 0, 0)
}

// RegisterError reports an error to the kernel.
func (c *Client) RegisterError(code kernel.Fault) {
	c.call(RegisterError, uint32(code), 0, 0)
}

// GetTicks returns the kernel tick count.
func (c *Client) GetTicks() uint64 {
	lo, hi := c.call(GetTicks, 0, 0, 0)
	return uint64(hi)<<32 | uint64(lo)
}

func (c *Client) Wait(l *kernel.Lockable) {
	c.call(Wait, c.handles.Intern(l), 0, 0)
}

func (c *Client) Lock(l *kernel.Lockable, acquired bool) {
	var a uint32
	if acquired {
		a = 1
	}
	c.call(Lock, c.handles.Intern(l), a, 0)
}
