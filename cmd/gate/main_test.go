package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Naresh-ado/parking-final/internal/config"
	"github.com/Naresh-ado/parking-final/internal/control"
	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/gate"
	"github.com/Naresh-ado/parking-final/internal/serialmux"
	"github.com/Naresh-ado/parking-final/internal/testutil"
	"github.com/Naresh-ado/parking-final/internal/timeutil"
)

func parse(t *testing.T, args ...string) (options, *config.GateConfig) {
	t.Helper()
	var opts options
	fs := newFlagSet(&opts)
	require.NoError(t, fs.Parse(args))
	cfg, err := loadConfig(fs, opts)
	require.NoError(t, err)
	return opts, cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	opts, cfg := parse(t)
	assert.False(t, opts.preview)
	assert.Equal(t, "0", cfg.GetCamera())
	assert.Equal(t, "", cfg.GetSerialPort())
	assert.Equal(t, 9600, cfg.GetBaudRate())
	assert.Equal(t, 1, cfg.GetSpotID())
	assert.Equal(t, "", cfg.GetListen())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"camera": "http://cam.local/video",
		"serial_port": "/dev/ttyACM0",
		"spot_id": 4,
		"journal_path": "gate.db"
	}`), 0o644))

	opts, cfg := parse(t, "-config", path, "-port", "/dev/ttyUSB1", "-spot", "7", "-preview", "-listen", "localhost:8090")
	assert.True(t, opts.preview)
	assert.Equal(t, "http://cam.local/video", cfg.GetCamera())
	assert.Equal(t, "/dev/ttyUSB1", cfg.GetSerialPort())
	assert.Equal(t, 7, cfg.GetSpotID())
	assert.Equal(t, "gate.db", cfg.GetJournalPath())
	assert.Equal(t, "localhost:8090", cfg.GetListen())
}

func TestLoadConfig_EmptyFlagClearsFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial_port": "/dev/ttyACM0"}`), 0o644))

	_, cfg := parse(t, "-config", path, "-port", "")
	assert.Equal(t, "", cfg.GetSerialPort())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string][]string{
		"bad authority url": {"-authority", "ftp://example.com"},
		"zero baud":         {"-baud", "0"},
		"missing file":      {"-config", filepath.Join(t.TempDir(), "nope.json")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var opts options
			fs := newFlagSet(&opts)
			require.NoError(t, fs.Parse(args))
			_, err := loadConfig(fs, opts)
			assert.Error(t, err)
		})
	}
}

type fixedStatus control.Status

func (s fixedStatus) Status() control.Status { return control.Status(s) }

func TestAdminMux(t *testing.T) {
	testutil.QuietLogs(t)
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	actuator := gate.NewSimulated(clock, gate.DefaultTimings())
	require.NoError(t, actuator.Apply(false))

	journal, err := db.NewDB(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	require.NoError(t, journal.RecordDecision(&db.Decision{Source: "region", VehicleType: "van", Color: "white", Outcome: "denied", Message: "Full"}))

	serial := serialmux.NewDisabledSerialMux()
	status := fixedStatus{State: control.StateContinue, Frames: 12, Decisions: 1, LastResult: `{allowed: false, message: "Full"}`}

	mux, err := newAdminMux(status, actuator, serial, journal)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"simulation", "frames: 12", "Full", "CLOSE at 2026-03-01T09:00:00Z"} {
		assert.Contains(t, body, want)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/decisions", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var decisions []db.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decisions))
	require.Len(t, decisions, 1)
	assert.Equal(t, "van", decisions[0].VehicleType)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/chart", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "Gate decisions")
}

func TestAdminMux_WithoutJournal(t *testing.T) {
	testutil.QuietLogs(t)
	actuator := gate.NewSimulated(timeutil.NewMockClock(time.Now()), gate.DefaultTimings())

	mux, err := newAdminMux(fixedStatus{}, actuator, serialmux.NewDisabledSerialMux(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/chart", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/", nil))
	assert.Contains(t, rec.Body.String(), "no command yet")
}
