// Package serialmux owns the serial link to the gate controller board. The
// board speaks one command per line and echoes an acknowledgement line, so
// the mux writes whole lines and fans every line it reads out to
// subscribers such as the debug tail.
package serialmux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrWriteFailed = errors.New("failed to write to serial port")
	// ErrInvalidCommand rejects commands that would span several lines.
	ErrInvalidCommand = errors.New("command must be a single non-empty line")
)

// SerialMuxInterface is the gate link as seen by the actuator and the
// debug pages. DisabledSerialMux implements it when no board is attached.
type SerialMuxInterface interface {
	// Subscribe returns an ID and a channel of lines read from the board.
	Subscribe() (string, chan string)
	Unsubscribe(string)
	// SendCommand writes command as one newline-terminated line.
	SendCommand(string) error
	// Monitor reads lines from the board until ctx is done or the read fails.
	Monitor(context.Context) error
	// Stats reports link traffic for the debug page.
	Stats() Stats
	// Close releases subscribers and the port.
	Close() error
	// AttachAdminRoutes registers the /debug/ command page and line tail.
	// tsweb restricts them to loopback and Tailscale clients.
	AttachAdminRoutes(*http.ServeMux)
}

// Stats summarizes traffic over the link.
type Stats struct {
	Disabled     bool
	CommandsSent uint64
	LinesRead    uint64
	// LinesDropped counts deliveries skipped for slow subscribers.
	LinesDropped uint64
	LastCommand  string
	LastLine     string
	Subscribers  int
}

func (s Stats) String() string {
	if s.Disabled {
		return fmt.Sprintf("disabled, %d commands dropped", s.CommandsSent)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sent %d", s.CommandsSent)
	if s.LastCommand != "" {
		fmt.Fprintf(&b, " (last %s)", s.LastCommand)
	}
	fmt.Fprintf(&b, ", read %d", s.LinesRead)
	if s.LastLine != "" {
		fmt.Fprintf(&b, " (last %q)", s.LastLine)
	}
	if s.LinesDropped > 0 {
		fmt.Fprintf(&b, ", dropped %d", s.LinesDropped)
	}
	return b.String()
}

// SerialMux multiplexes one board port between a single writer at a time
// and any number of line subscribers.
type SerialMux[T SerialPorter] struct {
	port    T
	subs    *subscriberSet
	closing atomic.Bool

	writeMu sync.Mutex
	statsMu sync.Mutex
	stats   Stats
}

func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{port: port, subs: newSubscriberSet(subscriberBuffer)}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) { return s.subs.add() }
func (s *SerialMux[T]) Unsubscribe(id string)            { s.subs.remove(id) }

func (s *SerialMux[T]) SendCommand(command string) error {
	line, err := commandLine(command)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	n, err := s.port.Write([]byte(line))
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}

	s.statsMu.Lock()
	s.stats.CommandsSent++
	s.stats.LastCommand = strings.TrimSuffix(line, "\n")
	s.statsMu.Unlock()
	return nil
}

// commandLine returns command terminated by exactly one newline.
func commandLine(command string) (string, error) {
	command = strings.TrimSuffix(command, "\n")
	if command == "" || strings.ContainsAny(command, "\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}
	return command + "\n", nil
}

func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	// Scan blocks on the port, so it runs apart from the ctx select below.
	go func() {
		defer close(lines)
		scan := bufio.NewScanner(s.port)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if s.closing.Load() {
				return nil
			}
			s.statsMu.Lock()
			s.stats.LinesRead++
			s.stats.LastLine = line
			s.statsMu.Unlock()

			if dropped := s.subs.broadcast(line); dropped > 0 {
				s.statsMu.Lock()
				s.stats.LinesDropped += uint64(dropped)
				s.statsMu.Unlock()
			}
		}
	}
}

func (s *SerialMux[T]) Stats() Stats {
	s.statsMu.Lock()
	st := s.stats
	s.statsMu.Unlock()
	st.Subscribers = s.subs.len()
	return st
}

func (s *SerialMux[T]) Close() error {
	s.closing.Store(true)
	s.subs.closeAll()
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, s)
}
