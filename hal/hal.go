package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// TrapHandler receives supervisor calls raised from task code.
//
// op is the one-byte operation code encoded in the trap instruction; frame is
// the offset of the caller's saved exception frame inside kernel RAM. The
// handler runs in privileged context on a separate stack and must read
// arguments from, and write any return value into, that frame.
type TrapHandler func(op uint8, frame uint32)

// CPU abstracts the trap and context-switch machinery of the target core.
//
// All stack values are byte offsets into the kernel RAM arena, never raw
// pointers. Stacks grow down. The saved-context layout is the armv7-m
// exception model: trap entry stacks R0-R3, R12, LR, PC and xPSR (the
// hardware frame); the switch path additionally stacks R4-R11 below it.
type CPU interface {
	// Reset binds the CPU to kernel RAM and a trap handler and clears all
	// execution state. It must be called once before any other method.
	Reset(ram []byte, trap TrapHandler)

	// SVC raises a supervisor call from the running task: the arguments are
	// loaded into R0/R1, the hardware frame is stacked, the trap handler
	// runs to completion, and the frame is unstacked again. The value left
	// in the frame's R0 slot is returned to the caller.
	SVC(op uint8, a0, a1 uint32) uint32

	// ExceptionEntry stacks the hardware frame for the running task and
	// returns the resulting stack pointer.
	ExceptionEntry() uint32
	// ExceptionReturn unstacks the hardware frame at sp into the live
	// register file, resuming the interrupted context.
	ExceptionReturn(sp uint32)

	// SaveContext stacks R4-R11 below the hardware frame at sp and returns
	// the final stack pointer, the value a TCB records across a switch.
	SaveContext(sp uint32) uint32
	// RestoreContext unstacks R4-R11 at sp and returns the stack pointer of
	// the hardware frame above it.
	RestoreContext(sp uint32) uint32

	// InitStack lays down a full saved context at the top of a fresh stack,
	// bit-for-bit identical to what ExceptionEntry followed by SaveContext
	// produces, so that restoring it starts entry from scratch. It returns
	// the stack pointer to record in the task's TCB.
	InitStack(top, entry uint32) uint32

	// Arg reads saved argument register n (0 or 1) from the frame at sp.
	Arg(sp uint32, n int) uint32
	// SetReturn writes v into the saved R0 slot of the frame at sp. The
	// value reaches the interrupted task when the frame is unstacked.
	SetReturn(sp, v uint32)

	// RequestSwitch raises a pending context-switch request. The switch is
	// deferred until the current trap context has run to completion.
	RequestSwitch()
	// TakeSwitchRequest reports whether a switch request is pending and
	// clears it.
	TakeSwitchRequest() bool

	// DisableInterrupts masks the tick interrupt and returns the previous
	// mask state for RestoreInterrupts.
	DisableInterrupts() uint32
	RestoreInterrupts(state uint32)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Console is a line-oriented text display.
//
// On host it renders into the framebuffer; on hardware it drives the
// character LCD. Tasks use it via ordinary calls, outside the trap path.
type Console interface {
	Clear()
	WriteLine(s string)
}

// Time provides the base tick stream.
//
// One tick is 1ms; the stream is the host stand-in for the SysTick interrupt.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the kernel and the hardware.
type HAL interface {
	CPU() CPU
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Display() Display
	Console() Console
	Time() Time
}
