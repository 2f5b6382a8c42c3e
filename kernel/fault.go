package kernel

import "fmt"

// FaultKind classifies unrecoverable kernel conditions.
type FaultKind uint8

const (
	// FaultBadSyscall is an operation code outside the known set. Protocol
	// misuse: there is no defined recovery, the kernel halts.
	FaultBadSyscall FaultKind = iota + 1
)

func (f FaultKind) String() string {
	switch f {
	case FaultBadSyscall:
		return "bad syscall"
	default:
		return "unknown"
	}
}

// FaultInfo contains details about a kernel fault.
type FaultInfo struct {
	Kind FaultKind
	Task int
	Op   uint8
}

// OnFault installs a fault handler for this kernel instance.
//
// The handler is invoked in trap context and takes over the machine: the
// kernel does not continue past it. With no handler installed a fault
// panics. It must not raise syscalls.
func (k *Kernel) OnFault(fn func(FaultInfo)) {
	k.onFault = fn
}

func (k *Kernel) fault(info FaultInfo) {
	if k.onFault != nil {
		k.onFault(info)
		return
	}
	panic(fmt.Sprintf("kernel fault: %s: task %d op %d", info.Kind, info.Task, info.Op))
}
