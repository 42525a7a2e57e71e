package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Naresh-ado/parking-final/internal/serialmux"
	"github.com/Naresh-ado/parking-final/internal/testutil"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newHardware(t *testing.T) (*Actuator, *serialmux.TestableSerialPort, *timeutil.MockClock) {
	t.Helper()
	port := serialmux.NewTestableSerialPort()
	clock := timeutil.NewMockClock(epoch)
	return NewHardware(serialmux.NewSerialMux(port), clock, DefaultTimings()), port, clock
}

// holdAsync runs Hold on a goroutine and returns a channel with its result.
func holdAsync(ctx context.Context, a *Actuator, path Path) <-chan error {
	done := make(chan error, 1)
	go func() { done <- a.Hold(ctx, path) }()
	return done
}

func awaitHold(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Hold did not return")
		return nil
	}
}

func TestCommandFor(t *testing.T) {
	assert.Equal(t, CommandOpen, CommandFor(true))
	assert.Equal(t, CommandClose, CommandFor(false))
}

func TestApply_Hardware(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, _ := newHardware(t)

	require.NoError(t, a.Apply(true))
	require.NoError(t, a.Apply(false))

	assert.Equal(t, "OPEN\nCLOSE\n", string(port.GetWrittenData()))
	st := a.State()
	assert.False(t, st.Simulated)
	assert.Equal(t, CommandClose, st.LastCommand)
	assert.Equal(t, epoch, st.LastAt)
	assert.Equal(t, 1, st.Opens)
}

func TestApply_HardwareWriteError(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, _ := newHardware(t)
	port.WriteError = errors.New("unplugged")

	err := a.Apply(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send OPEN")
	assert.Equal(t, 0, a.State().Opens)
}

func TestApply_Simulated(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	a := NewSimulated(timeutil.NewMockClock(epoch), DefaultTimings())

	require.NoError(t, a.Apply(true))
	require.NoError(t, a.Apply(false))

	assert.True(t, a.Simulated())
	assert.True(t, a.State().Simulated)
	assert.True(t, logs.Contains("Simulated Gate: OPENING"))
	assert.True(t, logs.Contains("Simulated Gate: REMAINING CLOSED"))
}

func TestHold_FeaturePathHardware(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, clock := newHardware(t)

	done := holdAsync(context.Background(), a, PathFeatures)

	require.True(t, clock.WaitForTimers(1, time.Second))
	assert.Empty(t, port.GetWrittenData(), "CLOSE must wait for the dwell")
	clock.Advance(7 * time.Second)

	// CLOSE is written before the settle wait starts.
	require.True(t, clock.WaitForTimers(1, time.Second))
	assert.Equal(t, "CLOSE\n", string(port.GetWrittenData()))
	clock.Advance(2 * time.Second)

	require.NoError(t, awaitHold(t, done))
	assert.Equal(t, []time.Duration{7 * time.Second, 2 * time.Second}, clock.Requested())
}

func TestHold_FeaturePathSimulatedSkipsSettle(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	clock := timeutil.NewMockClock(epoch)
	a := NewSimulated(clock, DefaultTimings())

	done := holdAsync(context.Background(), a, PathFeatures)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(7 * time.Second)

	require.NoError(t, awaitHold(t, done))
	assert.Equal(t, []time.Duration{7 * time.Second}, clock.Requested())
	assert.True(t, logs.Contains("Closing Gate..."))
}

func TestHold_FeaturePathSimulatedRecordsClose(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	clock := timeutil.NewMockClock(epoch)
	a := NewSimulated(clock, DefaultTimings())

	require.NoError(t, a.Apply(true))
	assert.Equal(t, CommandOpen, a.State().LastCommand)

	done := holdAsync(context.Background(), a, PathFeatures)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(7 * time.Second)
	require.NoError(t, awaitHold(t, done))

	st := a.State()
	assert.Equal(t, CommandClose, st.LastCommand)
	assert.Equal(t, epoch.Add(7*time.Second), st.LastAt)
	assert.Equal(t, 1, st.Opens)
	assert.True(t, logs.Contains("Simulated Gate: CLOSING"))
}

func TestHold_RegionPath(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, clock := newHardware(t)

	done := holdAsync(context.Background(), a, PathRegion)
	require.True(t, clock.WaitForTimers(1, time.Second))
	clock.Advance(4 * time.Second)
	select {
	case <-done:
		t.Fatal("Hold returned before the region dwell elapsed")
	default:
	}
	clock.Advance(time.Second)

	require.NoError(t, awaitHold(t, done))
	assert.Empty(t, port.GetWrittenData(), "region path sends no CLOSE")
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Requested())
}

func TestHold_CancelledStillCloses(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, clock := newHardware(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := holdAsync(ctx, a, PathFeatures)
	require.True(t, clock.WaitForTimers(1, time.Second))
	cancel()

	err := awaitHold(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "CLOSE\n", string(port.GetWrittenData()))
	// The settle wait is skipped once cancelled.
	assert.Len(t, clock.Requested(), 1)
}

func TestHold_CloseWriteError(t *testing.T) {
	testutil.QuietLogs(t)
	a, port, clock := newHardware(t)

	done := holdAsync(context.Background(), a, PathFeatures)
	require.True(t, clock.WaitForTimers(1, time.Second))
	port.WriteError = errors.New("unplugged")
	clock.Advance(7 * time.Second)

	err := awaitHold(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send CLOSE")
}

func TestHold_UnknownPath(t *testing.T) {
	a := NewSimulated(timeutil.NewMockClock(epoch), DefaultTimings())
	assert.Error(t, a.Hold(context.Background(), Path(9)))
	assert.Equal(t, "path(9)", Path(9).String())
	assert.Equal(t, "features", PathFeatures.String())
}
