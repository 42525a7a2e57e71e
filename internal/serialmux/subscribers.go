package serialmux

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is how many lines a subscriber may lag before lines are
// dropped for it.
const subscriberBuffer = 16

// subscriberSet tracks line subscribers. Once closed it hands out closed
// channels so late subscribers never block.
type subscriberSet struct {
	mu     sync.Mutex
	buffer int
	chans  map[string]chan string
	closed bool
}

func newSubscriberSet(buffer int) *subscriberSet {
	return &subscriberSet{buffer: buffer, chans: make(map[string]chan string)}
}

func (s *subscriberSet) add() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, s.buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return id, ch
	}
	s.chans[id] = ch
	return id, ch
}

func (s *subscriberSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.chans[id]; ok {
		close(ch)
		delete(s.chans, id)
	}
}

// broadcast offers line to every subscriber without blocking and returns
// how many could not take it.
func (s *subscriberSet) broadcast(line string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for _, ch := range s.chans {
		select {
		case ch <- line:
		default:
			dropped++
		}
	}
	return dropped
}

func (s *subscriberSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chans)
}

func (s *subscriberSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.chans {
		close(ch)
		delete(s.chans, id)
	}
}
