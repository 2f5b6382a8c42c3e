// Package app wires the HAL and the kernel into a runnable machine.
package app

import (
	"fmt"

	"ember/hal"
	"ember/kernel"
	"ember/tasks/blink"
	"ember/tasks/monitor"
)

const (
	ramBytes  = 64 * 1024
	heapStart = 64 // keep offset 0 free, it doubles as the alloc-failure sentinel

	blinkPeriodTicks     = 500
	monitorIntervalTicks = 1000
)

type system struct {
	h hal.HAL
	k *kernel.Kernel
}

// idle is the designated fallback task in registry slot 0. It must stay
// eligible forever, so it only ever yields.
type idle struct{}

func (idle) Step(tr *kernel.Trap) { tr.Yield() }

// worker is synthetic CPU load: it churns a checksum for a while and then
// yields, so the monitor has uneven run-tick numbers to show.
type worker struct {
	rounds int
	sum    uint32
}

func (w *worker) Step(tr *kernel.Trap) {
	for i := 0; i < w.rounds; i++ {
		w.sum = w.sum*1664525 + 1013904223
	}
	tr.Yield()
}

// New boots a machine on the given HAL and returns its step function. The
// step function is called once per host frame; each pending timer tick is
// delivered and followed by one scheduling opportunity.
func New(h hal.HAL) func() error {
	sys, err := newSystem(h)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("boot failed: " + err.Error())
		}
		return func() error { return err }
	}
	return sys.step
}

// Run boots the machine and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	sys, err := newSystem(h)
	if err != nil {
		panic("boot failed: " + err.Error())
	}
	ch := h.Time().Ticks()
	if ch == nil {
		select {}
	}
	for range ch {
		sys.k.Tick()
		sys.k.Step()
	}
}

func newSystem(h hal.HAL) (*system, error) {
	k, err := kernel.New(kernel.Config{
		RAM:       make([]byte, ramBytes),
		HeapStart: heapStart,
		HeapEnd:   ramBytes,
		CPU:       h.CPU(),
		GPIO:      h.GPIO(),
	})
	if err != nil {
		return nil, err
	}

	logger := h.Logger()
	k.OnFault(func(f kernel.FaultInfo) {
		if logger != nil {
			logger.WriteLineString(fmt.Sprintf("kernel fault: %s: task %d op %d", f.Kind, f.Task, f.Op))
		}
		panic("kernel halted")
	})

	if _, err := k.Spawn("idle", idle{}); err != nil {
		return nil, err
	}
	if _, err := k.Spawn("blink", blink.New(0, blinkPeriodTicks)); err != nil {
		return nil, err
	}
	if _, err := k.Spawn("worker1", &worker{rounds: 4000}); err != nil {
		return nil, err
	}
	if _, err := k.Spawn("worker2", &worker{rounds: 12000}); err != nil {
		return nil, err
	}
	if _, err := k.Spawn("monitor", monitor.New(k, h.Console(), logger, monitorIntervalTicks)); err != nil {
		return nil, err
	}

	if err := k.Start(); err != nil {
		return nil, err
	}
	return &system{h: h, k: k}, nil
}

// step delivers the ticks that accumulated since the last frame, giving the
// scheduler one opportunity after each, then lets the running task execute
// once more for the frame itself.
func (s *system) step() error {
	ch := s.h.Time().Ticks()
	for {
		select {
		case <-ch:
			s.k.Tick()
			s.k.Step()
		default:
			s.k.Step()
			return nil
		}
	}
}
