package gate

import (
	"context"

	"github.com/Naresh-ado/parking-final/internal/monitoring"
	"github.com/Naresh-ado/parking-final/internal/serialmux"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
)

// Connect opens the gate controller at path. When path is empty or the port
// cannot be opened the session runs in simulation mode: the returned mux is a
// serialmux.DisabledSerialMux and the actuator only logs. After a successful
// open it waits ConnectDelay for the board to reset.
func Connect(ctx context.Context, open serialmux.PortOpener, path string, opts serialmux.PortOptions, clock timeutil.Clock, timings Timings) (*Actuator, serialmux.SerialMuxInterface) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if path == "" {
		monitoring.Logf("No gate controller configured. Running in simulation mode.")
		return NewSimulated(clock, timings), serialmux.NewDisabledSerialMux()
	}
	if open == nil {
		open = serialmux.OpenPort
	}

	port, err := open(path, opts)
	if err != nil {
		monitoring.Logf("Warning: gate controller not found on %s (%v). Running in simulation mode.", path, err)
		return NewSimulated(clock, timings), serialmux.NewDisabledSerialMux()
	}

	mux := serialmux.NewSerialMux(port)
	a := NewHardware(mux, clock, timings)
	if err := a.wait(ctx, timings.ConnectDelay); err != nil {
		monitoring.Logf("gate connect delay interrupted: %v", err)
	}
	monitoring.Logf("Connected to gate controller on %s", path)
	return a, mux
}
