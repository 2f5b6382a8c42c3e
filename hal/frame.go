package hal

// Saved-context layout shared by the host and bare-metal CPUs. Trap entry
// stacks the hardware frame; the switch path stacks R4-R11 below it.
const (
	hwFrameBytes = 32 // R0-R3, R12, LR, PC, xPSR
	swFrameBytes = 32 // R4-R11
	psrThumb     = 0x01000000
)
