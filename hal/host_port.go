//go:build !tinygo

package hal

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// DefaultRAMBase is where the simulated SRAM is mapped, as on STM32.
	DefaultRAMBase uint32 = 0x2000_0000
	// DefaultRAMSize is the simulated SRAM size.
	DefaultRAMSize uint32 = 64 * 1024

	stubRegionSize = 0x400
	mainStackSize  = 0x400

	thumbReturn = 0x4770 // bx lr
)

// hostContext is the host-side execution state of one task: the goroutine
// that runs its entry function and the channel it parks on while switched out.
type hostContext struct {
	frame uint32 // saved stack pointer handed to the kernel
	psp   uint32 // thread-mode stack pointer once the frame is popped

	entry TaskFunc
	arg   any

	resume  chan struct{}
	started bool
	dead    bool
}

// hostPort runs tasks as goroutines while keeping a single logical processor:
// exactly one goroutine owns the CPU at any time and ownership only moves in
// the deferred switch handler. Device goroutines never run kernel code; they
// queue interrupt requests which the CPU owner takes at its interrupt windows
// (trap exit, EnableInterrupts back to zero, WaitForInterrupt, Preempt).
type hostPort struct {
	mem *Memory
	sc  SystemControl

	stubBase uint32
	exitAddr uint32
	heapBase uint32
	heapSize uint32

	irqs  *irqQueue
	ticks <-chan uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}

	level   uint32 // interrupt mask nesting
	handler int    // exception nesting
	pend    atomic.Bool

	sw     Switcher
	trap   TrapHandler
	onTick func()
	exit   func()
	fault  func(v any)

	ctxs map[uint32]*hostContext
	boot *hostContext
	cur  *hostContext
}

func newHostPort(ramBase, ramSize uint32, t Time) *hostPort {
	if ramSize == 0 {
		ramSize = DefaultRAMSize
	}
	mem := NewMemory(ramBase, ramSize)
	p := &hostPort{
		mem:      mem,
		stubBase: ramBase,
		heapBase: ramBase + stubRegionSize,
		heapSize: ramSize - stubRegionSize - mainStackSize,
		irqs:     newIRQQueue(),
		stop:     make(chan struct{}),
		ctxs:     make(map[uint32]*hostContext),
	}
	if t != nil {
		p.ticks = t.Ticks()
	}

	// One svc stub per immediate, then the task exit veneer.
	for imm := 0; imm < 256; imm++ {
		enc := EncodeSVC(uint8(imm))
		addr := p.stubBase + uint32(imm)*2
		mem.SetByte(addr, enc[0])
		mem.SetByte(addr+1, enc[1])
	}
	p.exitAddr = p.stubBase + 512
	mem.SetByte(p.exitAddr, byte(thumbReturn&0xff))
	mem.SetByte(p.exitAddr+1, byte(thumbReturn>>8))

	p.boot = &hostContext{psp: ramBase + ramSize, started: true}
	return p
}

func (p *hostPort) Memory() *Memory { return p.mem }

func (p *hostPort) HeapRegion() (base, size uint32) { return p.heapBase, p.heapSize }

func (p *hostPort) SetSwitcher(s Switcher)       { p.sw = s }
func (p *hostPort) SetTrapHandler(h TrapHandler) { p.trap = h }
func (p *hostPort) SetTickHandler(fn func())     { p.onTick = fn }
func (p *hostPort) SetTaskExit(fn func())        { p.exit = fn }
func (p *hostPort) SetFaultHandler(fn func(any)) { p.fault = fn }

// SystemControl returns a copy of the programmed system registers.
func (p *hostPort) SystemControl() SystemControl { return p.sc }

// Initialize programs the system registers and starts delivering SysTick
// interrupts from the time source.
func (p *hostPort) Initialize() {
	p.sc.configure()
	p.startOnce.Do(func() {
		if p.ticks == nil {
			return
		}
		go func() {
			for {
				select {
				case <-p.stop:
					return
				case _, ok := <-p.ticks:
					if !ok {
						return
					}
					p.raise(IRQSysTick)
				}
			}
		}()
	})
}

// Close stops the SysTick source.
func (p *hostPort) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *hostPort) raise(irq IRQ) {
	_ = p.irqs.TrySend(irq)
}

func (p *hostPort) TriggerPendSwitch() {
	p.sc.ICSR |= ICSRPendSVSet
	p.pend.Store(true)
}

func (p *hostPort) InitializeTaskStack(stackTop uint32, entry TaskFunc, arg any) uint32 {
	if entry == nil || stackTop < TaskFrameSize {
		return 0
	}
	frame := TaskFrameAddr(stackTop)
	if !p.mem.Contains(frame, TaskFrameSize) {
		return 0
	}

	var f TaskFrame
	f.Manual.LR = ExcReturnPSPUnpriv
	f.Auto.R0 = argWord(arg)
	f.Auto.PC = codeAddr(entry)
	f.Auto.LR = p.exitAddr | 1
	f.Auto.XPSR = XPSRInit
	f.Store(p.mem, frame)

	p.ctxs[frame] = &hostContext{
		frame:  frame,
		psp:    frame + TaskFrameSize,
		entry:  entry,
		arg:    arg,
		resume: make(chan struct{}, 1),
	}
	return frame
}

func (p *hostPort) ReleaseTaskStack(sp uint32) {
	if ctx, ok := p.ctxs[sp]; ok {
		ctx.dead = true
		delete(p.ctxs, sp)
	}
}

func (p *hostPort) DisableInterrupts() {
	p.level++
}

func (p *hostPort) EnableInterrupts() {
	if p.level == 0 {
		p.raiseFault("hal: EnableInterrupts without matching DisableInterrupts")
		return
	}
	p.level--
	if p.level == 0 {
		p.checkpoint()
	}
}

func (p *hostPort) WaitForInterrupt() {
	if p.handler > 0 {
		return
	}
	p.takeIRQ(p.irqs.Recv())
	p.checkpoint()
}

func (p *hostPort) Preempt() {
	p.checkpoint()
}

func (p *hostPort) SupervisorCall(code uint8, regs [4]uint32, stacked ...uint32) (r0, r1 uint32) {
	ctx := p.cur
	if ctx == nil {
		ctx = p.boot
		p.cur = ctx
	}

	// The caller pushes the arguments that do not fit in registers, then
	// exception entry stacks the frame below them, 8-byte aligned.
	sp := ctx.psp - uint32(len(stacked))*4
	for i, w := range stacked {
		p.mem.SetWord(sp+uint32(i)*4, w)
	}
	xpsr := XPSRInit
	if sp%8 != 0 {
		sp -= 4
		xpsr |= XPSRStackPadded
	}
	sp -= AutoFrameSize
	AutoFrame{
		R0:   regs[0],
		R1:   regs[1],
		R2:   regs[2],
		R3:   regs[3],
		LR:   0xFFFFFFFF,
		PC:   p.stubBase + uint32(code)*2 + 2,
		XPSR: xpsr,
	}.Store(p.mem, sp)

	p.handler++
	if p.trap == nil {
		p.handler--
		p.raiseFault(fmt.Sprintf("hal: svc #%d with no trap handler", code))
		return 0, 0
	}
	p.trap.HandleTrap(sp)
	p.handler--

	f := ReadAutoFrame(p.mem, sp)
	p.checkpoint()
	return f.R0, f.R1
}

func (p *hostPort) takeIRQ(irq IRQ) {
	p.handler++
	defer func() { p.handler-- }()

	switch irq {
	case IRQSysTick:
		p.sc.SysTickVal = p.sc.SysTickLoad
		if p.onTick != nil {
			p.onTick()
		}
	}
}

// checkpoint is an interrupt window of the CPU owner in thread mode.
func (p *hostPort) checkpoint() {
	if p.handler > 0 || p.level > 0 {
		return
	}
	for {
		irq, ok := p.irqs.TryRecv()
		if !ok {
			break
		}
		p.takeIRQ(irq)
	}
	p.switchIfPending()
}

func (p *hostPort) switchIfPending() {
	if !p.pend.Swap(false) {
		return
	}
	p.sc.ICSR &^= ICSRPendSVSet
	if p.sw == nil {
		p.raiseFault("hal: context switch with no switcher")
		return
	}

	me := p.cur
	var sp uint32
	if me != nil && me != p.boot && !me.dead {
		sp = me.frame
	}

	p.handler++
	next := p.sw.SwitchContext(sp)
	p.handler--

	target, ok := p.ctxs[next]
	if !ok {
		p.raiseFault(fmt.Sprintf("hal: switch to unknown stack 0x%08x", next))
		return
	}
	if target == me {
		return
	}

	p.cur = target
	if !target.started {
		target.started = true
		go p.run(target)
	} else {
		target.resume <- struct{}{}
	}

	switch {
	case me == nil || me == p.boot:
		// The boot context gives the processor away for good.
		return
	case me.dead:
		runtime.Goexit()
	default:
		<-me.resume
	}
}

func (p *hostPort) run(ctx *hostContext) {
	defer func() {
		if r := recover(); r != nil {
			p.raiseFault(r)
		}
	}()

	ctx.entry(ctx.arg)

	// Returning from the entry function lands in the exit veneer.
	if p.exit != nil {
		p.exit()
	}
	p.raiseFault("hal: task returned past its exit veneer")
}

func (p *hostPort) raiseFault(v any) {
	if p.fault != nil {
		p.fault(v)
		return
	}
	panic(v)
}

func codeAddr(fn TaskFunc) uint32 {
	return uint32(reflect.ValueOf(fn).Pointer()) | 1
}

func argWord(arg any) uint32 {
	switch v := arg.(type) {
	case uint32:
		return v
	case int:
		return uint32(v)
	case uintptr:
		return uint32(v)
	default:
		return 0
	}
}
