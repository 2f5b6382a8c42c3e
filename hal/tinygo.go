//go:build tinygo && baremetal

package hal

import (
	"machine"
)

type tinyGoHAL struct {
	cpu     CPU
	logger  *uartLogger
	led     *pinLED
	gpio    GPIO
	fb      Framebuffer
	console *lcdConsole
	t       *tinyGoTime
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// LCD:  HD44780 over I2C0 on GP4 (SDA) / GP5 (SCL), address 0x27.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	machine.I2C0.Configure(machine.I2CConfig{
		SDA: machine.GP4,
		SCL: machine.GP5,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	led := &pinLED{pin: ledPin}
	return &tinyGoHAL{
		cpu:     NewCortexCPU(),
		logger:  &uartLogger{uart: uart},
		led:     led,
		gpio:    NewVirtualGPIO([]GPIOPin{NewLEDPin("LED", led)}),
		fb:      &stubFramebuffer{w: 320, h: 320, format: PixelFormatRGB565},
		console: newLCDConsole(machine.I2C0, 0x27, 20, 4),
		t:       newTinyGoTime(),
	}
}

func (h *tinyGoHAL) CPU() CPU         { return h.cpu }
func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Console() Console { return h.console }
func (h *tinyGoHAL) Time() Time       { return h.t }
