package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/Naresh-ado/parking-final/internal/control"
	"github.com/Naresh-ado/parking-final/internal/db"
	"github.com/Naresh-ado/parking-final/internal/gate"
	"github.com/Naresh-ado/parking-final/internal/report"
	"github.com/Naresh-ado/parking-final/internal/serialmux"
	"github.com/Naresh-ado/parking-final/internal/version"
)

// statusSource is the part of the control loop the debug page reads.
type statusSource interface {
	Status() control.Status
}

// newAdminMux builds the /debug/ pages. journal may be nil.
func newAdminMux(loop statusSource, actuator *gate.Actuator, serial serialmux.SerialMuxInterface, journal *db.DB) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)

	debug.KV("Version", version.String())
	debug.KVFunc("Gate mode", func() any {
		if actuator.Simulated() {
			return "simulation"
		}
		return "hardware"
	})
	debug.KVFunc("Gate", func() any {
		st := actuator.State()
		if st.LastAt.IsZero() {
			return "no command yet"
		}
		return fmt.Sprintf("%s at %s, opens: %d", st.LastCommand, st.LastAt.Format(time.RFC3339), st.Opens)
	})
	debug.KVFunc("Loop", func() any {
		st := loop.Status()
		return fmt.Sprintf("%s, frames: %d, decisions: %d, grants: %d", st.State, st.Frames, st.Decisions, st.Grants)
	})
	debug.KVFunc("Last decision", func() any {
		if st := loop.Status(); st.LastResult != "" {
			return st.LastResult
		}
		return "none"
	})

	serial.AttachAdminRoutes(mux)
	if journal != nil {
		if err := journal.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
		debug.Handle("chart", "Decision chart", report.ChartHandler(journal))
	}
	return mux, nil
}

// serveAdmin runs the admin server on listen until ctx is done.
func serveAdmin(ctx context.Context, listen string, mux *http.ServeMux) {
	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("admin server listening on %s/debug/", listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("admin server force close error: %v", err)
		}
	}
	log.Printf("admin server stopped")
}
