package serialmux

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// OpenPort opens the gate board at path. It satisfies PortOpener.
func OpenPort(path string, opts PortOptions) (SerialPorter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.Open(path, opts.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s at %s: %w", path, opts, err)
	}
	return port, nil
}

// ListPorts describes the serial devices present on this host, one line
// per device. USB devices carry their vendor and product IDs so the gate
// board can be told apart from other adapters.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		out = append(out, describePort(p))
	}
	return out, nil
}

func describePort(p *enumerator.PortDetails) string {
	if !p.IsUSB {
		return p.Name
	}
	desc := fmt.Sprintf("%s usb %s:%s", p.Name, p.VID, p.PID)
	if p.Product != "" {
		desc += " " + p.Product
	}
	if p.SerialNumber != "" {
		desc += " serial=" + p.SerialNumber
	}
	return desc
}
