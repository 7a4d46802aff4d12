package hal

// Exception frame layout and system control registers of an ARMv7-M core.
// The host machine keeps the same frame image in its simulated RAM so that
// trap arguments are marshaled exactly as on the target.

const (
	// ExcReturnPSPUnpriv returns to thread mode, process stack, unprivileged.
	ExcReturnPSPUnpriv uint32 = 0xFFFFFFFD
	// XPSRInit has only the Thumb bit set.
	XPSRInit uint32 = 1 << 24
	// XPSRStackPadded is set in the stacked XPSR when the processor inserted
	// a padding word to 8-byte align the frame on exception entry.
	XPSRStackPadded uint32 = 1 << 9

	AutoFrameSize   = 8 * 4
	ManualFrameSize = 9 * 4
	TaskFrameSize   = AutoFrameSize + ManualFrameSize

	svcOpcode = 0xDF
)

const (
	SysTickSourceHz = 72_000_000
	TickHz          = 1_000

	SysTickCtrlEnable    uint32 = 1 << 0
	SysTickCtrlTickInt   uint32 = 1 << 1
	SysTickCtrlClkSource uint32 = 1 << 2

	CCRStackAlign uint32 = 1 << 9
	ICSRPendSVSet uint32 = 1 << 28

	// Exception priority slots in SHP, lowest number is most urgent.
	PriorityHighest uint8 = 0x00
	PriorityLowest  uint8 = 0xFF
)

// AutoFrame is the part of the exception frame the processor stacks on
// exception entry.
type AutoFrame struct {
	R0   uint32
	R1   uint32
	R2   uint32
	R3   uint32
	R12  uint32
	LR   uint32
	PC   uint32
	XPSR uint32
}

// ManualFrame is the part of the frame the switch handler saves itself.
type ManualFrame struct {
	R4  uint32
	R5  uint32
	R6  uint32
	R7  uint32
	R8  uint32
	R9  uint32
	R10 uint32
	R11 uint32
	LR  uint32
}

// TaskFrame is the full register image of a switched-out task.
type TaskFrame struct {
	Manual ManualFrame
	Auto   AutoFrame
}

func (f *AutoFrame) words() []*uint32 {
	return []*uint32{&f.R0, &f.R1, &f.R2, &f.R3, &f.R12, &f.LR, &f.PC, &f.XPSR}
}

func (f *ManualFrame) words() []*uint32 {
	return []*uint32{&f.R4, &f.R5, &f.R6, &f.R7, &f.R8, &f.R9, &f.R10, &f.R11, &f.LR}
}

// ReadAutoFrame loads the auto-stacked frame at addr.
func ReadAutoFrame(m *Memory, addr uint32) AutoFrame {
	var f AutoFrame
	for i, w := range f.words() {
		*w = m.Word(addr + uint32(i)*4)
	}
	return f
}

// Store writes the frame to memory at addr.
func (f AutoFrame) Store(m *Memory, addr uint32) {
	for i, w := range f.words() {
		m.SetWord(addr+uint32(i)*4, *w)
	}
}

// ReadTaskFrame loads the full task frame at addr.
func ReadTaskFrame(m *Memory, addr uint32) TaskFrame {
	var f TaskFrame
	for i, w := range f.Manual.words() {
		*w = m.Word(addr + uint32(i)*4)
	}
	f.Auto = ReadAutoFrame(m, addr+ManualFrameSize)
	return f
}

// Store writes the full task frame to memory at addr.
func (f TaskFrame) Store(m *Memory, addr uint32) {
	for i, w := range f.Manual.words() {
		m.SetWord(addr+uint32(i)*4, *w)
	}
	f.Auto.Store(m, addr+ManualFrameSize)
}

// TaskFrameAddr returns where the initial frame of a task whose stack ends
// at stackTop is placed. The auto frame is 8-byte aligned per AAPCS.
func TaskFrameAddr(stackTop uint32) uint32 {
	frame := stackTop - AutoFrameSize
	frame &^= 7
	return frame - ManualFrameSize
}

// EncodeSVC returns the little-endian Thumb encoding of "svc #imm".
func EncodeSVC(imm uint8) [2]byte {
	return [2]byte{imm, svcOpcode}
}

// SVCImmediate decodes the immediate of the svc instruction that precedes
// the stacked return address pc.
func SVCImmediate(m *Memory, pc uint32) (uint8, bool) {
	if m.Byte(pc-1) != svcOpcode {
		return 0, false
	}
	return m.Byte(pc - 2), true
}

// SystemControl mirrors the SCB and SysTick registers the port programs.
type SystemControl struct {
	SHPSVCall  uint8
	SHPPendSV  uint8
	SHPSysTick uint8
	CCR        uint32
	ICSR       uint32

	SysTickLoad uint32
	SysTickVal  uint32
	SysTickCtrl uint32
}

// configure programs the registers the way the kernel expects them: SVC
// most urgent, PendSV and SysTick least urgent, 1 kHz tick, 8-byte stack
// alignment on exception entry.
func (sc *SystemControl) configure() {
	sc.SHPSysTick = PriorityLowest
	sc.SHPPendSV = PriorityLowest
	sc.SHPSVCall = PriorityHighest

	sc.SysTickLoad = SysTickSourceHz/TickHz - 1
	sc.SysTickVal = 0
	sc.SysTickCtrl = SysTickCtrlEnable | SysTickCtrlTickInt | SysTickCtrlClkSource

	sc.CCR |= CCRStackAlign
}
