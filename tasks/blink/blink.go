// Package blink drives a heartbeat LED through the supervisor-call layer.
package blink

import (
	"ember/kernel"
)

// Task toggles one LED at a fixed period. It spends almost all of its time
// asleep, so it doubles as a liveness indicator for the tick service: a
// frozen LED means ticks stopped arriving.
type Task struct {
	dev    uint32
	period uint32
	on     bool
}

// New returns a blinker for LED dev toggling every period ticks.
func New(dev, period uint32) *Task {
	if period == 0 {
		period = 500
	}
	return &Task{dev: dev, period: period}
}

func (t *Task) Step(tr *kernel.Trap) {
	t.on = !t.on
	tr.LED(t.dev, t.on)
	tr.Sleep(t.period)
}
