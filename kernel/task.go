package kernel

// TaskState tags a task's scheduling eligibility.
type TaskState uint8

const (
	// TaskReady means eligible to run.
	TaskReady TaskState = iota
	// TaskRunning is held by exactly one task system-wide.
	TaskRunning
	// TaskSleeping means ineligible until the wake tick arrives.
	TaskSleeping
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// Task is one unit of execution. Step runs one slice of the task's work and
// returns; the scheduler decides when it runs again. Task bodies are
// expected to keep being stepped forever, there is no terminal state.
type Task interface {
	Step(*Trap)
}

// stackPaint fills fresh stacks so the watermark scan can tell how deep the
// task has ever reached.
const stackPaint = 0xa5

// tcb is the per-task control block. The saved stack pointer is the only
// machine context the kernel persists across switches; everything else lives
// on the task's own stack inside the arena.
type tcb struct {
	name string
	task Task
	trap *Trap

	sp       uint32 // arena offset of the saved context, valid while not running
	state    TaskState
	wakeTick uint64 // meaningful only while TaskSleeping
	runTicks uint64

	stackLo uint32 // heap payload offset, also the Free handle
	stackHi uint32
}

// TaskInfo is an observational snapshot of one registry slot.
type TaskInfo struct {
	Name       string
	State      TaskState
	RunTicks   uint64
	StackBytes uint32
	StackUsed  uint32 // watermark: deepest stack use so far
}

// TaskCount returns the number of registered tasks. Indices are stable:
// tasks are never removed.
func (k *Kernel) TaskCount() int {
	return len(k.tasks)
}

// TaskInfo snapshots the task at index id, or a zero value if out of range.
func (k *Kernel) TaskInfo(id int) TaskInfo {
	if id < 0 || id >= len(k.tasks) {
		return TaskInfo{}
	}
	t := k.tasks[id]
	return TaskInfo{
		Name:       t.name,
		State:      t.state,
		RunTicks:   t.runTicks,
		StackBytes: t.stackHi - t.stackLo,
		StackUsed:  k.stackUsed(t),
	}
}

// StackWatermark reports the deepest stack use the task has reached, in
// bytes from the stack top. Zero for an out-of-range index.
func (k *Kernel) StackWatermark(id int) uint32 {
	if id < 0 || id >= len(k.tasks) {
		return 0
	}
	return k.stackUsed(k.tasks[id])
}

func (k *Kernel) stackUsed(t *tcb) uint32 {
	for off := t.stackLo; off < t.stackHi; off++ {
		if k.cfg.RAM[off] != stackPaint {
			return t.stackHi - off
		}
	}
	return 0
}
