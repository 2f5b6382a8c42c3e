package kernel

import (
	"testing"

	"ember/hal"
)

// maskSpyCPU counts interrupt-mask acquisitions so tests can check that a
// code path takes (and balances) the critical-section discipline.
type maskSpyCPU struct {
	hal.CPU
	masks int
	depth int
}

func (c *maskSpyCPU) DisableInterrupts() uint32 {
	c.masks++
	c.depth++
	return c.CPU.DisableInterrupts()
}

func (c *maskSpyCPU) RestoreInterrupts(st uint32) {
	c.depth--
	c.CPU.RestoreInterrupts(st)
}

func newSpyKernel(t *testing.T) (*Kernel, *maskSpyCPU) {
	t.Helper()
	spy := &maskSpyCPU{CPU: hal.NewHostCPU()}
	k, err := New(Config{
		RAM:        make([]byte, 64*1024),
		HeapStart:  64,
		HeapEnd:    64 * 1024,
		StackBytes: 1024,
		CPU:        spy,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k, spy
}

func TestSpawnMasksInterrupts(t *testing.T) {
	k, spy := newSpyKernel(t)

	spy.masks = 0
	if _, err := k.Spawn("a", stepFunc(func(*Trap) {})); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if spy.masks == 0 {
		t.Fatal("Spawn mutated heap and registry without masking interrupts")
	}
	if spy.depth != 0 {
		t.Fatalf("unbalanced mask after Spawn: depth %d", spy.depth)
	}
}

func TestSpawnFailureRestoresMask(t *testing.T) {
	spy := &maskSpyCPU{CPU: hal.NewHostCPU()}
	k, err := New(Config{
		RAM:        make([]byte, 8*1024),
		HeapStart:  64,
		HeapEnd:    8 * 1024,
		StackBytes: 4096,
		CPU:        spy,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := k.Spawn("big", stepFunc(func(*Trap) {})); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := k.Spawn("bigger", stepFunc(func(*Trap) {})); err == nil {
		t.Fatal("expected heap exhaustion")
	}
	if spy.depth != 0 {
		t.Fatalf("unbalanced mask after failed Spawn: depth %d", spy.depth)
	}
}

func TestCounterReadsMaskInterrupts(t *testing.T) {
	k, spy := newSpyKernel(t)

	spy.masks = 0
	_ = k.Ticks()
	if spy.masks != 1 {
		t.Fatalf("Ticks masked %d times, want 1", spy.masks)
	}

	spy.masks = 0
	_ = k.ContextSwitches()
	if spy.masks != 1 {
		t.Fatalf("ContextSwitches masked %d times, want 1", spy.masks)
	}
	if spy.depth != 0 {
		t.Fatalf("unbalanced mask: depth %d", spy.depth)
	}
}

// The timer interrupt can land while the running task is mid-Spawn; both
// sides hold the mask, so the registry and heap stay consistent. Run with
// the race detector to exercise the discipline.
func TestSpawnConcurrentWithTicks(t *testing.T) {
	k := newTestKernel(t)
	spawnN(t, k, 1)
	startKernel(t, k)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			k.Tick()
		}
	}()

	for i := 0; i < 20; i++ {
		if _, err := k.Spawn("w", stepFunc(func(*Trap) {})); err != nil {
			t.Fatalf("Spawn %d: %v", i, err)
		}
	}
	<-done

	if n := k.TaskCount(); n != 21 {
		t.Fatalf("TaskCount = %d, want 21", n)
	}
	if k.Ticks() != 2000 {
		t.Fatalf("Ticks = %d, want 2000", k.Ticks())
	}
}
