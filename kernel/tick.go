package kernel

// Tick is the body of the periodic timer interrupt, fired every tick period
// (1ms). It advances the monotonic counter, attributes the tick to the
// running task, promotes sleeping tasks whose deadline has elapsed, and at
// every quantum boundary raises a context-switch request. The request is
// pending, never immediate: the switch runs after this handler and every
// other trap in flight has completed.
func (k *Kernel) Tick() {
	if !k.started {
		return
	}
	st := k.cpu.DisableInterrupts()

	k.ticks++
	k.tasks[k.current].runTicks++

	for _, t := range k.tasks {
		if t.state == TaskSleeping && t.wakeTick <= k.ticks {
			t.state = TaskReady
		}
	}

	k.countdown--
	if k.countdown == 0 {
		k.countdown = k.cfg.QuantumTicks
		k.cpu.RequestSwitch()
	}

	k.cpu.RestoreInterrupts(st)
}
