package serialmux

import (
	"fmt"
	"slices"

	"go.bug.st/serial"
)

// DefaultBaudRate is the line speed of the gate controller board.
const DefaultBaudRate = 9600

// standardBaudRates are the speeds the board firmware can be built for.
var standardBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// PortOptions configures the link to the gate controller board. The board
// always talks 8N1, so only the line speed varies.
type PortOptions struct {
	BaudRate int
}

// WithDefaults fills unset fields.
func (o PortOptions) WithDefaults() PortOptions {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	return o
}

// Validate rejects line speeds the board cannot run at.
func (o PortOptions) Validate() error {
	o = o.WithDefaults()
	if !slices.Contains(standardBaudRates, o.BaudRate) {
		return fmt.Errorf("unsupported baud rate %d: expected one of %v", o.BaudRate, standardBaudRates)
	}
	return nil
}

// Mode returns the go.bug.st/serial mode for the options.
func (o PortOptions) Mode() *serial.Mode {
	o = o.WithDefaults()
	return &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

func (o PortOptions) String() string {
	return fmt.Sprintf("%d 8N1", o.WithDefaults().BaudRate)
}
