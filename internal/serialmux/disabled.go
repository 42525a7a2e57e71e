package serialmux

import (
	"context"
	"net/http"
	"sync"

	"tailscale.com/tsweb"

	"github.com/Naresh-ado/parking-final/internal/monitoring"
)

// DisabledSerialMux stands in for the board when none is attached. Commands
// are logged and dropped. Subscribers still get channels so the debug tail
// works and unblocks on Close.
type DisabledSerialMux struct {
	subs *subscriberSet

	mu   sync.Mutex
	sent []string
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{subs: newSubscriberSet(0)}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) { return d.subs.add() }
func (d *DisabledSerialMux) Unsubscribe(id string)            { d.subs.remove(id) }

// SendCommand records the command without writing it anywhere.
func (d *DisabledSerialMux) SendCommand(command string) error {
	line, err := commandLine(command)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.sent = append(d.sent, line[:len(line)-1])
	d.mu.Unlock()
	monitoring.Debugf("serial disabled, dropped command %q", command)
	return nil
}

// Sent returns the commands dropped so far.
func (d *DisabledSerialMux) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

func (d *DisabledSerialMux) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Stats{Disabled: true, CommandsSent: uint64(len(d.sent)), Subscribers: d.subs.len()}
	if n := len(d.sent); n > 0 {
		st.LastCommand = d.sent[n-1]
	}
	return st
}

func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.subs.closeAll()
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	tsweb.Debugger(mux).HandleSilentFunc("serial-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("serial disabled"))
	})
	attachAdminRoutes(mux, d)
}
