package kernel

// pick selects the next task to run: scan forward from the slot after the
// current task, wrapping at the registry end, and take the first ready one.
// When a full scan finds nothing ready, fall back to the idle task at index
// 0 so the scan always terminates and the machine always has something to
// resume, even with every other task asleep.
func (k *Kernel) pick() int {
	n := len(k.tasks)
	for i := 1; i <= n; i++ {
		id := (k.current + i) % n
		if k.tasks[id].state == TaskReady {
			return id
		}
	}
	return 0
}

// ContextSwitch performs the full switch protocol, triggered by the timer
// quantum or by a syscall that requested one:
//
//  1. capture the running task's context onto its own stack and record the
//     stack pointer in its TCB;
//  2. demote it from running to ready, unless a syscall already moved it to
//     another state (a task that just slept must stay sleeping);
//  3. pick the next task round-robin and mark it running;
//  4. restore that task's context and resume it.
//
// Restoring cannot tell a freshly spawned task from a preempted one: Spawn
// initializes stacks with the exact layout step 1 produces.
func (k *Kernel) ContextSwitch() {
	st := k.cpu.DisableInterrupts()

	cur := k.tasks[k.current]
	frame := k.cpu.ExceptionEntry()
	cur.sp = k.cpu.SaveContext(frame)
	if cur.state == TaskRunning {
		cur.state = TaskReady
	}

	next := k.pick()
	nt := k.tasks[next]
	nt.state = TaskRunning
	k.current = next
	k.switches++

	sp := k.cpu.RestoreContext(nt.sp)
	k.cpu.RestoreInterrupts(st)
	k.cpu.ExceptionReturn(sp)
}

// sleepTask moves a task to the sleeping state with its wake deadline. The
// two writes form one critical section: the tick service promotes tasks
// purely from the deadline field and must never observe one without the
// other.
func (k *Kernel) sleepTask(id int, d uint32) {
	t := k.tasks[id]
	st := k.cpu.DisableInterrupts()
	t.wakeTick = k.ticks + uint64(d)
	t.state = TaskSleeping
	k.cpu.RestoreInterrupts(st)
}
