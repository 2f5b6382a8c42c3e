//go:build tinygo && baremetal

package hal

import (
	"device/arm"
	"encoding/binary"
	"sync/atomic"
)

// cortexCPU runs the trap and context machinery over the kernel RAM arena on
// the target core. Frame layout is identical to the host implementation;
// interrupt masking uses PRIMASK instead of a mutex, so the tick interrupt is
// really held off while a critical section runs.
type cortexCPU struct {
	ram  []byte
	trap TrapHandler

	r   [13]uint32
	sp  uint32
	lr  uint32
	pc  uint32
	psr uint32

	pendSwitch atomic.Bool
}

// NewCortexCPU returns the bare-metal CPU. Reset must be called before use.
func NewCortexCPU() CPU { return &cortexCPU{} }

func (c *cortexCPU) Reset(ram []byte, trap TrapHandler) {
	c.ram = ram
	c.trap = trap
	c.r = [13]uint32{}
	c.sp = 0
	c.lr = 0
	c.pc = 0
	c.psr = psrThumb
	c.pendSwitch.Store(false)
}

func (c *cortexCPU) load(off uint32) uint32 {
	return binary.LittleEndian.Uint32(c.ram[off:])
}

func (c *cortexCPU) store(off, v uint32) {
	binary.LittleEndian.PutUint32(c.ram[off:], v)
}

func (c *cortexCPU) SVC(op uint8, a0, a1 uint32) uint32 {
	c.r[0] = a0
	c.r[1] = a1
	frame := c.ExceptionEntry()
	if c.trap != nil {
		c.trap(op, frame)
	}
	c.ExceptionReturn(frame)
	return c.r[0]
}

func (c *cortexCPU) ExceptionEntry() uint32 {
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

func (c *cortexCPU) ExceptionReturn(sp uint32) {
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

func (c *cortexCPU) SaveContext(sp uint32) uint32 {
	sp -= swFrameBytes
	for i := 0; i < 8; i++ {
		c.store(sp+uint32(i)*4, c.r[4+i])
	}
	c.sp = sp
	return sp
}

func (c *cortexCPU) RestoreContext(sp uint32) uint32 {
	for i := 0; i < 8; i++ {
		c.r[4+i] = c.load(sp + uint32(i)*4)
	}
	c.sp = sp + swFrameBytes
	return sp + swFrameBytes
}

func (c *cortexCPU) InitStack(top, entry uint32) uint32 {
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

func (c *cortexCPU) Arg(sp uint32, n int) uint32 {
	return c.load(sp + uint32(n)*4)
}

func (c *cortexCPU) SetReturn(sp, v uint32) {
	c.store(sp, v)
}

func (c *cortexCPU) RequestSwitch() {
	c.pendSwitch.Store(true)
}

func (c *cortexCPU) TakeSwitchRequest() bool {
	return c.pendSwitch.CompareAndSwap(true, false)
}

func (c *cortexCPU) DisableInterrupts() uint32 {
	return uint32(arm.DisableInterrupts())
}

func (c *cortexCPU) RestoreInterrupts(state uint32) {
	arm.EnableInterrupts(uintptr(state))
}
