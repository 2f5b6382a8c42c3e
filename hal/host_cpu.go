//go:build !tinygo

package hal

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
)

// hostCPU simulates the armv7-m trap and context machinery over the kernel
// RAM arena. Frames are stored little-endian in the exact order the hardware
// stacks them, so the kernel sees bit-identical layouts on host and target.
//
// The privileged trap context runs on the ordinary Go stack; only task
// context lives inside the arena.
type hostCPU struct {
	irq sync.Mutex // held while interrupts are masked

	ram  []byte
	trap TrapHandler

	r   [13]uint32 // live R0-R12
	sp  uint32
	lr  uint32
	pc  uint32
	psr uint32

	pendSwitch atomic.Bool
}

// NewHostCPU returns a simulated CPU. Reset must be called before use.
func NewHostCPU() CPU { return &hostCPU{} }

func (c *hostCPU) Reset(ram []byte, trap TrapHandler) {
	c.ram = ram
	c.trap = trap
	c.r = [13]uint32{}
	c.sp = 0
	c.lr = 0
	c.pc = 0
	c.psr = psrThumb
	c.pendSwitch.Store(false)
}

func (c *hostCPU) load(off uint32) uint32 {
	if int(off)+4 > len(c.ram) {
		panic(fmt.Sprintf("hostcpu: busfault: load at %#x outside %d-byte RAM", off, len(c.ram)))
	}
	return binary.LittleEndian.Uint32(c.ram[off:])
}

func (c *hostCPU) store(off, v uint32) {
	if int(off)+4 > len(c.ram) {
		panic(fmt.Sprintf("hostcpu: busfault: store at %#x outside %d-byte RAM", off, len(c.ram)))
	}
	binary.LittleEndian.PutUint32(c.ram[off:], v)
}

func (c *hostCPU) SVC(op uint8, a0, a1 uint32) uint32 {
	c.r[0] = a0
	c.r[1] = a1
	frame := c.ExceptionEntry()
	if c.trap != nil {
		c.trap(op, frame)
	}
	c.ExceptionReturn(frame)
	return c.r[0]
}

func (c *hostCPU) ExceptionEntry() uint32 {
	sp := c.sp - hwFrameBytes
	c.store(sp+0, c.r[0])
	c.store(sp+4, c.r[1])
	c.store(sp+8, c.r[2])
	c.store(sp+12, c.r[3])
	c.store(sp+16, c.r[12])
	c.store(sp+20, c.lr)
	c.store(sp+24, c.pc)
	c.store(sp+28, c.psr)
	c.sp = sp
	return sp
}

func (c *hostCPU) ExceptionReturn(sp uint32) {
	c.r[0] = c.load(sp + 0)
	c.r[1] = c.load(sp + 4)
	c.r[2] = c.load(sp + 8)
	c.r[3] = c.load(sp + 12)
	c.r[12] = c.load(sp + 16)
	c.lr = c.load(sp + 20)
	c.pc = c.load(sp + 24)
	c.psr = c.load(sp + 28)
	c.sp = sp + hwFrameBytes
}

func (c *hostCPU) SaveContext(sp uint32) uint32 {
	sp -= swFrameBytes
	for i := 0; i < 8; i++ {
		c.store(sp+uint32(i)*4, c.r[4+i])
	}
	c.sp = sp
	return sp
}

func (c *hostCPU) RestoreContext(sp uint32) uint32 {
	for i := 0; i < 8; i++ {
		c.r[4+i] = c.load(sp + uint32(i)*4)
	}
	c.sp = sp + swFrameBytes
	return sp + swFrameBytes
}

func (c *hostCPU) InitStack(top, entry uint32) uint32 {
	hw := top - hwFrameBytes
	for i := uint32(0); i < 5; i++ { // R0-R3, R12
		c.store(hw+i*4, 0)
	}
	c.store(hw+20, 0) // LR: tasks never return
	c.store(hw+24, entry)
	c.store(hw+28, psrThumb)

	sw := hw - swFrameBytes
	for i := uint32(0); i < 8; i++ {
		c.store(sw+i*4, 0)
	}
	return sw
}

func (c *hostCPU) Arg(sp uint32, n int) uint32 {
	if n < 0 || n > 3 {
		panic(fmt.Sprintf("hostcpu: argument register %d out of frame", n))
	}
	return c.load(sp + uint32(n)*4)
}

func (c *hostCPU) SetReturn(sp, v uint32) {
	c.store(sp, v)
}

func (c *hostCPU) RequestSwitch() {
	c.pendSwitch.Store(true)
}

func (c *hostCPU) TakeSwitchRequest() bool {
	return c.pendSwitch.CompareAndSwap(true, false)
}

// DisableInterrupts takes the interrupt mask. The host implementation is a
// plain mutex: it models PRIMASK but is not reentrant, which matches the
// kernel's use (critical sections never nest).
func (c *hostCPU) DisableInterrupts() uint32 {
	c.irq.Lock()
	return 0
}

func (c *hostCPU) RestoreInterrupts(state uint32) {
	_ = state
	c.irq.Unlock()
}
