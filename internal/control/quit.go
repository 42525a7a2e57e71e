package control

import (
	"bufio"
	"io"
	"strings"
	"sync/atomic"
)

// LineQuit watches a reader for a line consisting of "q" and latches a quit
// request. It is the headless counterpart to the preview window's key poll.
type LineQuit struct {
	requested atomic.Bool
	done      chan struct{}
}

// WatchLines starts reading r in the background.
func WatchLines(r io.Reader) *LineQuit {
	q := &LineQuit{done: make(chan struct{})}
	go q.watch(r)
	return q
}

func (q *LineQuit) watch(r io.Reader) {
	defer close(q.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.EqualFold(strings.TrimSpace(sc.Text()), "q") {
			q.requested.Store(true)
			return
		}
	}
}

// Requested reports whether a quit line has been read.
func (q *LineQuit) Requested() bool {
	return q.requested.Load()
}

// Done is closed once the watcher stops reading.
func (q *LineQuit) Done() <-chan struct{} {
	return q.done
}
