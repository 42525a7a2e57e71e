package testutil

import (
	"net/http"
	"testing"

	"github.com/Naresh-ado/parking-final/internal/monitoring"
)

func TestLocalRequest(t *testing.T) {
	req := LocalRequest(http.MethodGet, "/debug/gate", nil)
	if req.RemoteAddr != "127.0.0.1:12345" {
		t.Errorf("RemoteAddr = %q", req.RemoteAddr)
	}
	if req.URL.Path != "/debug/gate" {
		t.Errorf("Path = %q", req.URL.Path)
	}
}

func TestCaptureLogs(t *testing.T) {
	logs := CaptureLogs(t)
	monitoring.Logf("Sent to gate: %s", "OPEN")

	if !logs.Contains("Sent to gate: OPEN") {
		t.Errorf("captured %v", logs.Lines())
	}
	if logs.Contains("Sent to gate: CLOSE") {
		t.Error("unexpected match")
	}
}

func TestQuietLogs(t *testing.T) {
	prev := monitoring.Logf
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	var called bool
	monitoring.SetLogger(func(string, ...interface{}) { called = true })

	t.Run("muted", func(t *testing.T) {
		QuietLogs(t)
		monitoring.Logf("hidden")
	})
	if called {
		t.Error("expected log to be muted")
	}

	// The previous logger is restored after the subtest.
	monitoring.Logf("visible")
	if !called {
		t.Error("expected previous logger to be restored")
	}
}

func TestAssertStatusCode(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}
