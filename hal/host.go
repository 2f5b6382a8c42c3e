//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

type hostHAL struct {
	cpu    CPU
	logger *hostLogger
	led    *hostLED
	gpio   GPIO
	fb     *hostFramebuffer
	t      *hostTime
	con    *termConsole
}

// New returns a host HAL implementation: simulated CPU, stdout logger, a
// virtual LED bank and an in-memory LCD framebuffer.
func New() HAL {
	logger := &hostLogger{w: os.Stdout}
	led := &hostLED{logger: logger}
	pins := []GPIOPin{NewLEDPin("LED", led)}
	for i := 0; i < 3; i++ {
		pins = append(pins, NewVirtualPin(fmt.Sprintf("GPIO%d", i+1), GPIOCapInput|GPIOCapOutput))
	}
	fb := newHostFramebuffer(240, 160)
	return &hostHAL{
		cpu:    NewHostCPU(),
		logger: logger,
		led:    led,
		gpio:   NewVirtualGPIO(pins),
		fb:     fb,
		t:      newHostTime(),
		con:    newTermConsole(fb),
	}
}

func (h *hostHAL) CPU() CPU         { return h.cpu }
func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Console() Console { return h.con }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	l.logger.WriteLineString("led: LOW")
}
