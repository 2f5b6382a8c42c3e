package kernel

// Supervisor-call operation codes, encoded as the one-byte immediate of the
// trap instruction. Arguments travel in the saved R0/R1 slots of the
// caller's frame; a single return value is written back into the R0 slot.
const (
	SysYield uint8 = iota
	SysSleep
	SysTaskID
	SysLEDControl
	SysTicks
	SysContextSwitches
	SysTaskTicks
)

// handleTrap is the privileged syscall dispatcher. It runs on the trap
// stack, so arguments are read from the interrupted task's frame, not from
// the dispatcher's own; return values are delivered by editing the slot the
// hardware will restore into R0. Several operations only request a context
// switch here; the switch itself happens after the trap completes.
//
// An operation code outside the known set is protocol misuse and fatal.
func (k *Kernel) handleTrap(op uint8, frame uint32) {
	switch op {
	case SysYield:
		k.cpu.RequestSwitch()
	case SysSleep:
		k.sleepTask(k.current, k.cpu.Arg(frame, 0))
		k.cpu.RequestSwitch()
	case SysTaskID:
		k.cpu.SetReturn(frame, uint32(k.current))
	case SysLEDControl:
		k.ledControl(k.cpu.Arg(frame, 0), k.cpu.Arg(frame, 1) != 0)
	case SysTicks:
		k.cpu.SetReturn(frame, uint32(k.Ticks()))
	case SysContextSwitches:
		k.cpu.SetReturn(frame, uint32(k.switches))
	case SysTaskTicks:
		k.cpu.SetReturn(frame, k.taskTicks(k.cpu.Arg(frame, 0)))
	default:
		k.fault(FaultInfo{Kind: FaultBadSyscall, Task: k.current, Op: op})
	}
}

// taskTicks returns the accumulated run ticks of the given task, or the
// sentinel 0 for an out-of-range index.
func (k *Kernel) taskTicks(id uint32) uint32 {
	if id >= uint32(len(k.tasks)) {
		return 0
	}
	return uint32(k.tasks[id].runTicks)
}

// Trap is the task-side system-call stub. Every method raises a real
// supervisor call through the CPU, so the full trap protocol, frame
// argument passing included, is exercised even in simulation. The stub
// carries no task identity: the dispatcher attributes every call to the
// running task, exactly as the trap hardware would.
type Trap struct {
	k *Kernel
}

// Yield gives up the rest of the quantum without changing state.
func (t *Trap) Yield() {
	t.k.cpu.SVC(SysYield, 0, 0)
}

// Sleep makes the calling task ineligible for at least d ticks. The task
// becomes ready again at the first tick at or after the deadline, but may
// run arbitrarily later depending on the other ready tasks.
func (t *Trap) Sleep(d uint32) {
	t.k.cpu.SVC(SysSleep, d, 0)
}

// TaskID returns the calling task's registry index.
func (t *Trap) TaskID() uint32 {
	return t.k.cpu.SVC(SysTaskID, 0, 0)
}

// LED forwards an on/off request for the given device to the peripheral
// layer. Unknown devices are ignored.
func (t *Trap) LED(dev uint32, on bool) {
	v := uint32(0)
	if on {
		v = 1
	}
	t.k.cpu.SVC(SysLEDControl, dev, v)
}

// Ticks returns the low word of the monotonic tick counter.
func (t *Trap) Ticks() uint32 {
	return t.k.cpu.SVC(SysTicks, 0, 0)
}

// ContextSwitches returns the low word of the cumulative switch count.
func (t *Trap) ContextSwitches() uint32 {
	return t.k.cpu.SVC(SysContextSwitches, 0, 0)
}

// TaskTicks returns the run ticks attributed to task id, 0 if out of range.
func (t *Trap) TaskTicks(id uint32) uint32 {
	return t.k.cpu.SVC(SysTaskTicks, id, 0)
}
