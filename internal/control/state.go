// Package control runs the gate session: it captures frames, detects
// vehicles, asks the authority for access and actuates the gate until a
// grant completes, capture fails or the operator quits.
package control

import (
	"errors"
	"fmt"
)

// ErrCaptureFailed ends a session when the camera yields no frame.
var ErrCaptureFailed = errors.New("failed to grab frame")

// State is a step of the per-frame state machine.
type State int

const (
	StateScanning State = iota
	StateFeatureMatch
	StateRegionMatch
	StateNoMatch
	StateDeciding
	StateActuating
	StateContinue
	StateTerminate
)

var stateNames = [...]string{
	StateScanning:     "SCANNING",
	StateFeatureMatch: "FEATURE_MATCH",
	StateRegionMatch:  "REGION_MATCH",
	StateNoMatch:      "NO_MATCH",
	StateDeciding:     "DECIDING",
	StateActuating:    "ACTUATING",
	StateContinue:     "CONTINUE",
	StateTerminate:    "TERMINATE",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is how one iteration ended.
type Outcome string

const (
	// OutcomeNoVehicle: nothing recognised in the frame.
	OutcomeNoVehicle Outcome = "no_vehicle"
	// OutcomeOffCenter: vehicles were found but none in the lane window.
	OutcomeOffCenter Outcome = "off_center"
	// OutcomeDenied: the authority, or a failure standing in for it, denied.
	OutcomeDenied Outcome = "denied"
	// OutcomeActuationFailed: access was granted but OPEN could not be sent.
	OutcomeActuationFailed Outcome = "actuation_failed"
	// OutcomeGranted: the gate was opened and its hold sequence ran.
	OutcomeGranted Outcome = "granted"
	// OutcomeCaptureFailed: no frame could be read.
	OutcomeCaptureFailed Outcome = "capture_failed"
	// OutcomeQuit: the operator asked to stop.
	OutcomeQuit Outcome = "quit"
	// OutcomeCancelled: the session context ended.
	OutcomeCancelled Outcome = "cancelled"
)

// Terminal reports whether the session ends after this outcome.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeGranted, OutcomeCaptureFailed, OutcomeQuit, OutcomeCancelled:
		return true
	default:
		return false
	}
}
