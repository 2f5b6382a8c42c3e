// Package monitor periodically reports kernel health to the console.
package monitor

import (
	"fmt"

	"ember/hal"
	"ember/kernel"
)

// StatsSource is the read-only slice of the kernel the monitor inspects.
// *kernel.Kernel satisfies it.
type StatsSource interface {
	HeapStats() kernel.HeapStats
	TaskCount() int
	TaskInfo(id int) kernel.TaskInfo
}

// Task renders a status page every interval ticks: uptime, switch count,
// heap occupancy and a per-task line with state, run ticks and stack
// watermark. Counters that need trap-level accuracy (ticks, switches, own
// run time) come in through supervisor calls; the rest is read directly
// from the stats surface.
type Task struct {
	src      StatsSource
	console  hal.Console
	logger   hal.Logger
	interval uint32
}

// New returns a monitor stepping every interval ticks. logger may be nil.
func New(src StatsSource, console hal.Console, logger hal.Logger, interval uint32) *Task {
	if interval == 0 {
		interval = 1000
	}
	return &Task{src: src, console: console, logger: logger, interval: interval}
}

func (t *Task) Step(tr *kernel.Trap) {
	t.report(tr)
	tr.Sleep(t.interval)
}

func (t *Task) report(tr *kernel.Trap) {
	ticks := tr.Ticks()
	switches := tr.ContextSwitches()
	hs := t.src.HeapStats()

	if t.console != nil {
		t.console.Clear()
	}
	t.line("uptime %dms  switches %d", ticks, switches)
	t.line("heap %d/%d used  frag %d/1000", hs.UsedBytes, hs.TotalBytes, hs.FragPermille)

	for id := 0; id < t.src.TaskCount(); id++ {
		info := t.src.TaskInfo(id)
		run := tr.TaskTicks(uint32(id))
		t.line("%d %-8s %-8s run %d stack %d/%d",
			id, info.Name, info.State, run, info.StackUsed, info.StackBytes)
	}
}

func (t *Task) line(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if t.console != nil {
		t.console.WriteLine(s)
	}
	if t.logger != nil {
		t.logger.WriteLineString(s)
	}
}
