// Package kernel implements the core of a single-core preemptive kernel:
// a first-fit heap allocator over a fixed RAM arena, a round-robin task
// scheduler with an explicit context-switch protocol, a supervisor-call
// dispatcher, and a 1ms tick service. Everything architecture-specific is
// behind hal.CPU, so the whole package runs and tests on a host machine.
package kernel

import (
	"fmt"

	"ember/hal"
)

// Config describes the fixed memory map and scheduling parameters of one
// kernel instance. It is supplied once and never changes.
type Config struct {
	// RAM is the kernel-managed memory arena. Task stacks, heap blocks and
	// saved contexts all live here, addressed by byte offsets.
	RAM []byte

	// HeapStart/HeapEnd bound the heap region inside RAM. The region must
	// be disjoint from anything else the application places in the arena.
	HeapStart uint32
	HeapEnd   uint32

	// StackBytes is the stack size carved from the heap for each task.
	StackBytes uint32

	// QuantumTicks is the preemption quantum in tick periods.
	QuantumTicks uint32

	// CodeBase seeds the synthetic entry addresses written into fresh
	// context frames, mirroring the fixed flash code region.
	CodeBase uint32

	// CPU provides the trap and context-switch machinery.
	CPU hal.CPU

	// GPIO receives LedControl requests. May be nil.
	GPIO hal.GPIO
}

const (
	defaultStackBytes   = 2048
	defaultQuantumTicks = 10
	defaultCodeBase     = 0x0800_0000

	// minStackBytes must hold at least one full saved context plus working
	// room below it.
	minStackBytes = 256
)

// Kernel is one independent kernel instance: heap, task registry, scheduler
// and timebase. Multiple instances can coexist, each with its own arena.
type Kernel struct {
	cfg  Config
	cpu  hal.CPU
	heap *Heap

	tasks   []*tcb // slot table, indices are task ids and never move
	current int

	ticks     uint64
	countdown uint32
	switches  uint64

	started bool

	onFault func(FaultInfo)
}

// New validates the configuration and initializes the heap region. No task
// exists yet; the caller registers at least the idle task before Start.
func New(cfg Config) (*Kernel, error) {
	if cfg.CPU == nil {
		return nil, fmt.Errorf("kernel: no CPU")
	}
	if len(cfg.RAM) == 0 {
		return nil, fmt.Errorf("kernel: no RAM arena")
	}
	if cfg.StackBytes == 0 {
		cfg.StackBytes = defaultStackBytes
	}
	if cfg.StackBytes < minStackBytes {
		return nil, fmt.Errorf("kernel: stack size %d below minimum %d", cfg.StackBytes, minStackBytes)
	}
	if cfg.QuantumTicks == 0 {
		cfg.QuantumTicks = defaultQuantumTicks
	}
	if cfg.CodeBase == 0 {
		cfg.CodeBase = defaultCodeBase
	}

	heap, err := NewHeap(cfg.RAM, cfg.HeapStart, cfg.HeapEnd)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		cfg:       cfg,
		cpu:       cfg.CPU,
		heap:      heap,
		countdown: cfg.QuantumTicks,
	}
	k.cpu.Reset(cfg.RAM, k.handleTrap)
	return k, nil
}

// Spawn registers a task: its stack is carved from the heap, painted, and
// initialized with a saved context indistinguishable from one left behind by
// a preemption. Static registration before Start and dynamic creation at
// runtime are the same path. The returned index is the task's id for
// lookups and the TaskTicks call.
//
// Task index 0 is the designated idle fallback; it must never sleep.
func (k *Kernel) Spawn(name string, t Task) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("kernel: spawn %q: nil task", name)
	}

	// Heap and registry mutations sit under the same mask as the tick
	// service: a timer interrupt must never observe a half-linked split or
	// a slot table mid-append.
	st := k.cpu.DisableInterrupts()

	lo, ok := k.heap.Alloc(k.cfg.StackBytes)
	if !ok {
		k.cpu.RestoreInterrupts(st)
		return 0, fmt.Errorf("kernel: spawn %q: no heap block for %d-byte stack", name, k.cfg.StackBytes)
	}
	hi := lo + k.cfg.StackBytes
	for off := lo; off < hi; off++ {
		k.cfg.RAM[off] = stackPaint
	}

	id := len(k.tasks)
	top := hi &^ 7 // stacks are 8-byte aligned
	entry := k.cfg.CodeBase + uint32(id)*4
	sp := k.cpu.InitStack(top, entry)

	t0 := &tcb{
		name:    name,
		task:    t,
		sp:      sp,
		state:   TaskReady,
		stackLo: lo,
		stackHi: hi,
	}
	t0.trap = &Trap{k: k}
	k.tasks = append(k.tasks, t0)

	k.cpu.RestoreInterrupts(st)
	return id, nil
}

// Start resumes the first task. Task 0 is launched by restoring its freshly
// initialized context, exactly as a context switch would.
func (k *Kernel) Start() error {
	if len(k.tasks) == 0 {
		return fmt.Errorf("kernel: start with no tasks")
	}
	if k.started {
		return fmt.Errorf("kernel: already started")
	}
	k.started = true
	k.current = 0
	t := k.tasks[0]
	t.state = TaskRunning
	k.cpu.ExceptionReturn(k.cpu.RestoreContext(t.sp))
	return nil
}

// Step runs the machine for one scheduling opportunity: a pending switch
// request is honored first, then the running task executes one step. This is
// the host-side stand-in for "the processor returns from the trap and
// resumes a task".
func (k *Kernel) Step() {
	if !k.started {
		return
	}
	if k.cpu.TakeSwitchRequest() {
		k.ContextSwitch()
	}
	t := k.tasks[k.current]
	t.task.Step(t.trap)
}

// Ticks returns the monotonic tick count.
func (k *Kernel) Ticks() uint64 {
	st := k.cpu.DisableInterrupts()
	v := k.ticks
	k.cpu.RestoreInterrupts(st)
	return v
}

// ContextSwitches returns the cumulative context-switch count.
func (k *Kernel) ContextSwitches() uint64 {
	st := k.cpu.DisableInterrupts()
	v := k.switches
	k.cpu.RestoreInterrupts(st)
	return v
}

// Current returns the index of the running task.
func (k *Kernel) Current() int {
	return k.current
}

// HeapStats snapshots the allocator statistics surface. Purely
// observational; no effect on allocator behavior.
func (k *Kernel) HeapStats() HeapStats {
	st := k.cpu.DisableInterrupts()
	s := k.heap.Stats()
	k.cpu.RestoreInterrupts(st)
	return s
}

// Heap exposes the allocator for kernel clients that manage their own
// buffers inside the arena.
func (k *Kernel) Heap() *Heap {
	return k.heap
}

func (k *Kernel) ledControl(dev uint32, on bool) {
	if k.cfg.GPIO == nil {
		return
	}
	pin := k.cfg.GPIO.Pin(int(dev))
	if pin == nil {
		return
	}
	_ = pin.Write(on)
}
