package kernel

import (
	"testing"

	"ember/hal"
)

// stepFunc adapts a function to the Task interface.
type stepFunc func(*Trap)

func (f stepFunc) Step(t *Trap) { f(t) }

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	ram := make([]byte, 64*1024)
	k, err := New(Config{
		RAM:          ram,
		HeapStart:    64,
		HeapEnd:      uint32(len(ram)),
		StackBytes:   1024,
		QuantumTicks: 10,
		CPU:          hal.NewHostCPU(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

// spawnN registers n tasks that do nothing per step.
func spawnN(t *testing.T, k *Kernel, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := k.Spawn("task", stepFunc(func(*Trap) {})); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
}

func startKernel(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestRoundRobinVisitOrder(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 3)
	startKernel(t, k)

	// Ten consecutive quantum switches starting from task 0 visit the
	// tasks cyclically in index order.
	want := []int{1, 2, 0, 1, 2, 0, 1, 2, 0, 1}
	for i, w := range want {
		k.ContextSwitch()
		if got := k.Current(); got != w {
			t.Fatalf("switch %d: running task %d, expected %d", i, got, w)
		}
	}
	if k.ContextSwitches() != 10 {
		t.Fatalf("ContextSwitches = %d, expected 10", k.ContextSwitches())
	}
}

func TestRoundRobinVisitsEveryTaskOnce(t *testing.T) {
	k := newTestKernel(t)
	const n = 5
	spawnN(t, k, n)
	startKernel(t, k)

	// Within any n consecutive selections every task runs exactly once,
	// independent of the starting index.
	k.ContextSwitch()
	k.ContextSwitch() // arbitrary starting point
	seen := make(map[int]int)
	for i := 0; i < n; i++ {
		seen[k.Current()]++
		k.ContextSwitch()
	}
	for id := 0; id < n; id++ {
		if seen[id] != 1 {
			t.Fatalf("task %d ran %d times in %d selections: %v", id, seen[id], n, seen)
		}
	}
}

func TestIdleFallbackWhenAllSleeping(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 3)
	startKernel(t, k)

	// Nothing is ready, not even the idle task: selection must still
	// terminate and hand the machine to task 0.
	for _, tcb := range k.tasks {
		tcb.state = TaskSleeping
		tcb.wakeTick = 1 << 40
	}
	if got := k.pick(); got != 0 {
		t.Fatalf("pick() = %d with all tasks sleeping, expected idle task 0", got)
	}
	k.ContextSwitch()
	if k.Current() != 0 {
		t.Fatalf("running task %d after switch, expected 0", k.Current())
	}
}

func TestSleepWakesAtDeadline(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 2)

	slept := false
	id, err := k.Spawn("sleeper", stepFunc(func(tr *Trap) {
		if !slept {
			slept = true
			tr.Sleep(5)
		}
	}))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	startKernel(t, k)

	// Walk the scheduler until the sleeper runs its step and goes to bed.
	for k.Current() != id {
		k.ContextSwitch()
	}
	startTick := k.Ticks()
	k.Step()
	if !slept {
		t.Fatal("sleeper did not step")
	}
	if st := k.TaskInfo(id).State; st != TaskSleeping {
		t.Fatalf("sleeper state %s after Sleep, expected sleeping", st)
	}

	// The task must not become ready before tick startTick+5, and must be
	// ready at that exact tick under no contention.
	for i := 0; i < 4; i++ {
		k.Tick()
		if st := k.TaskInfo(id).State; st != TaskSleeping {
			t.Fatalf("sleeper woke at tick %d, deadline is %d", k.Ticks(), startTick+5)
		}
	}
	k.Tick()
	if st := k.TaskInfo(id).State; st != TaskReady {
		t.Fatalf("sleeper state %s at deadline tick, expected ready", st)
	}
}

func TestSleepingTaskIsNotDemotedToReadyBySwitch(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 2)
	startKernel(t, k)

	// The running task puts itself to sleep; the following switch must
	// preserve that state instead of overwriting it back to ready.
	k.sleepTask(0, 100)
	k.ContextSwitch()
	if st := k.TaskInfo(0).State; st != TaskSleeping {
		t.Fatalf("task 0 state %s after switch, expected sleeping", st)
	}
	if k.Current() == 0 {
		t.Fatal("sleeping task was selected to run")
	}
}

func TestQuantumRaisesSwitchRequest(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 2)
	startKernel(t, k)

	order := make([]int, 0, 32)
	for i := 0; i < 30; i++ {
		k.Tick()
		if k.cpu.TakeSwitchRequest() {
			k.ContextSwitch()
			order = append(order, k.Current())
		}
	}
	// Quantum is 10 ticks: 30 ticks produce exactly 3 switches.
	if len(order) != 3 {
		t.Fatalf("expected 3 quantum switches in 30 ticks, got %d", len(order))
	}
	want := []int{1, 0, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("switch order %v, expected %v", order, want)
		}
	}
}

func TestPreemptionInterleavesSteps(t *testing.T) {
	k := newTestKernel(t)

	var order []int
	for i := 0; i < 3; i++ {
		id := i
		if _, err := k.Spawn("worker", stepFunc(func(*Trap) {
			order = append(order, id)
		})); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
	startKernel(t, k)

	// Drive the machine tick by tick. The quantum switch lands on the step
	// right after the tenth tick, so task 0's first quantum is 9 steps and
	// every later quantum is a full 10.
	for i := 0; i < 60; i++ {
		k.Tick()
		k.Step()
	}
	if len(order) != 60 {
		t.Fatalf("expected 60 steps, got %d", len(order))
	}
	checks := []struct{ step, id int }{
		{0, 0}, {8, 0}, {9, 1}, {18, 1}, {19, 2}, {28, 2}, {29, 0}, {38, 0}, {39, 1}, {59, 0},
	}
	for _, c := range checks {
		if order[c.step] != c.id {
			t.Fatalf("step %d ran task %d, expected %d (order %v)", c.step, order[c.step], c.id, order)
		}
	}
}

func TestRunTickAccounting(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 2)
	startKernel(t, k)

	for i := 0; i < 7; i++ {
		k.Tick()
	}
	if got := k.TaskInfo(0).RunTicks; got != 7 {
		t.Fatalf("task 0 runTicks = %d, expected 7", got)
	}
	if got := k.TaskInfo(1).RunTicks; got != 0 {
		t.Fatalf("task 1 runTicks = %d, expected 0", got)
	}

	k.ContextSwitch()
	for i := 0; i < 3; i++ {
		k.Tick()
	}
	if got := k.TaskInfo(1).RunTicks; got != 3 {
		t.Fatalf("task 1 runTicks = %d, expected 3", got)
	}
}

func TestSpawnWhileRunning(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 2)
	startKernel(t, k)
	k.ContextSwitch()

	var ran bool
	id, err := k.Spawn("late", stepFunc(func(*Trap) { ran = true }))
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if id != 2 {
		t.Fatalf("late task got index %d, expected 2", id)
	}

	// The new task joins the round robin like any other.
	for i := 0; i < 3 && k.Current() != id; i++ {
		k.ContextSwitch()
	}
	if k.Current() != id {
		t.Fatal("late task never selected")
	}
	k.Step()
	if !ran {
		t.Fatal("late task never stepped")
	}
}

func TestSpawnFailsWhenHeapExhausted(t *testing.T) {
	ram := make([]byte, 8*1024)
	k, err := New(Config{
		RAM:        ram,
		HeapStart:  0,
		HeapEnd:    uint32(len(ram)),
		StackBytes: 4096,
		CPU:        hal.NewHostCPU(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := k.Spawn("a", stepFunc(func(*Trap) {})); err != nil {
		t.Fatalf("Spawn a: %v", err)
	}
	if _, err := k.Spawn("b", stepFunc(func(*Trap) {})); err == nil {
		t.Fatal("expected second 4096-byte stack to fail in an 8KiB heap")
	}
}

func TestStackWatermark(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 1)

	// A fresh task has exactly one saved context on its stack.
	used := k.StackWatermark(0)
	if used < 64 || used > 96 {
		t.Fatalf("fresh task watermark %d, expected one saved context (64 bytes, alignment slack allowed)", used)
	}
	if k.StackWatermark(99) != 0 {
		t.Fatal("out-of-range watermark not zero")
	}
}
