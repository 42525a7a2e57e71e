// Package gate drives the barrier: it turns access decisions into serial
// commands for the gate controller board, or log lines when no board is
// attached, and owns the dwell timing after a grant.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Naresh-ado/parking-final/internal/monitoring"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
)

// Command is a line understood by the gate controller board.
type Command string

const (
	CommandOpen  Command = "OPEN"
	CommandClose Command = "CLOSE"
)

// CommandFor maps a decision to the command that enacts it.
func CommandFor(allowed bool) Command {
	if allowed {
		return CommandOpen
	}
	return CommandClose
}

// Path is the detection strategy that produced a grant. Each path has its
// own hold sequence.
type Path int

const (
	PathFeatures Path = iota
	PathRegion
)

func (p Path) String() string {
	switch p {
	case PathFeatures:
		return "features"
	case PathRegion:
		return "region"
	default:
		return fmt.Sprintf("path(%d)", int(p))
	}
}

// Timings are the waits around a grant.
type Timings struct {
	// FeatureDwell is how long the gate stays open after a feature grant.
	FeatureDwell time.Duration
	// FeatureSettle is the wait after CLOSE for the barrier to come down.
	// It only applies when a board is attached.
	FeatureSettle time.Duration
	// RegionDwell is the wait after a region grant before the session ends.
	RegionDwell time.Duration
	// ConnectDelay lets the board finish its reset after the port opens.
	ConnectDelay time.Duration
}

// DefaultTimings returns the production waits.
func DefaultTimings() Timings {
	return Timings{
		FeatureDwell:  7 * time.Second,
		FeatureSettle: 2 * time.Second,
		RegionDwell:   5 * time.Second,
		ConnectDelay:  2 * time.Second,
	}
}

// Sender writes one command line to the board. serialmux.SerialMuxInterface
// satisfies it.
type Sender interface {
	SendCommand(string) error
}

// State is a snapshot of the actuator for diagnostics.
type State struct {
	Simulated   bool
	LastCommand Command
	LastAt      time.Time
	Opens       int
}

// Actuator applies decisions to the gate. It is used from the control
// goroutine only; State may be read concurrently.
type Actuator struct {
	link    Sender
	clock   timeutil.Clock
	timings Timings

	mu    sync.Mutex
	state State
}

// NewHardware returns an actuator that writes to link.
func NewHardware(link Sender, clock timeutil.Clock, timings Timings) *Actuator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Actuator{link: link, clock: clock, timings: timings}
}

// NewSimulated returns an actuator that only logs what it would do.
func NewSimulated(clock timeutil.Clock, timings Timings) *Actuator {
	a := NewHardware(nil, clock, timings)
	a.state.Simulated = true
	return a
}

// Simulated reports whether no board is attached.
func (a *Actuator) Simulated() bool {
	return a.link == nil
}

// State returns a copy of the current state.
func (a *Actuator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Apply enacts a decision: OPEN when allowed, CLOSE otherwise. In simulation
// it logs the gate's intended state instead.
func (a *Actuator) Apply(allowed bool) error {
	if allowed {
		monitoring.Logf("!!! VEHICLE ACCEPTED - OPENING GATE !!!")
	}
	cmd := CommandFor(allowed)
	if a.Simulated() {
		if allowed {
			monitoring.Logf("Simulated Gate: OPENING")
		} else {
			monitoring.Logf("Simulated Gate: REMAINING CLOSED")
		}
		a.record(cmd)
		return nil
	}
	return a.send(cmd)
}

// Hold runs the post-grant sequence for path. For the feature path the gate
// is held open, closed, and given time to settle; for the region path the
// gate is held open and left to the board. When ctx is cancelled the
// remaining waits are skipped but the feature path still sends CLOSE. The
// returned error joins a cancellation with any write failure.
func (a *Actuator) Hold(ctx context.Context, path Path) error {
	switch path {
	case PathFeatures:
		monitoring.Logf("Gate Opened. Waiting %s...", a.timings.FeatureDwell)
		waitErr := a.wait(ctx, a.timings.FeatureDwell)

		monitoring.Logf("Closing Gate...")
		var sendErr error
		if a.Simulated() {
			monitoring.Logf("Simulated Gate: CLOSING")
			a.record(CommandClose)
		} else {
			sendErr = a.send(CommandClose)
			if waitErr == nil && sendErr == nil {
				waitErr = a.wait(ctx, a.timings.FeatureSettle)
			}
		}
		return errors.Join(waitErr, sendErr)

	case PathRegion:
		monitoring.Logf("Gate Opened (Cascade). Waiting %s...", a.timings.RegionDwell)
		return a.wait(ctx, a.timings.RegionDwell)

	default:
		return fmt.Errorf("unknown gate path %v", path)
	}
}

func (a *Actuator) send(cmd Command) error {
	if err := a.link.SendCommand(string(cmd)); err != nil {
		return fmt.Errorf("failed to send %s to gate: %w", cmd, err)
	}
	monitoring.Logf("Sent to gate: %s", cmd)
	a.record(cmd)
	return nil
}

func (a *Actuator) record(cmd Command) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.LastCommand = cmd
	a.state.LastAt = a.clock.Now()
	if cmd == CommandOpen {
		a.state.Opens++
	}
}

// wait blocks for d on the actuator's clock or until ctx is done.
func (a *Actuator) wait(ctx context.Context, d time.Duration) error {
	return timeutil.Sleep(ctx, a.clock, d)
}
