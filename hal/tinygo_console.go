//go:build tinygo && baremetal

package hal

import (
	"machine"

	"tinygo.org/x/drivers/hd44780i2c"
)

// lcdConsole drives a character LCD over I2C. When the screen fills it
// clears and starts over; there is no scrollback on a 4-line panel.
type lcdConsole struct {
	dev  hd44780i2c.Device
	cols int8
	rows int8
	row  int8
	ok   bool
}

func newLCDConsole(bus *machine.I2C, addr uint8, cols, rows int8) *lcdConsole {
	c := &lcdConsole{cols: cols, rows: rows}
	c.dev = hd44780i2c.New(bus, addr)
	if err := c.dev.Configure(hd44780i2c.Config{
		Width:  cols,
		Height: rows,
	}); err != nil {
		// No panel attached; console becomes a no-op.
		return c
	}
	c.ok = true
	return c
}

func (c *lcdConsole) Clear() {
	if !c.ok {
		return
	}
	c.dev.ClearDisplay()
	c.row = 0
}

func (c *lcdConsole) WriteLine(s string) {
	if !c.ok {
		return
	}
	if c.row >= c.rows {
		c.dev.ClearDisplay()
		c.row = 0
	}
	if len(s) > int(c.cols) {
		s = s[:c.cols]
	}
	c.dev.SetCursor(0, c.row)
	c.dev.Print([]byte(s))
	c.row++
}
