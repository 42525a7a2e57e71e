package main

import (
	"context"
	"errors"
	"io"
	"sync"
)

// background owns the goroutines that run beside the control loop: the
// serial monitor, the board line logger and the admin server. Resources
// they read are handed to CloseAfter so Stop releases them only after every
// goroutine has returned.
type background struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closers []io.Closer
}

func newBackground(parent context.Context) *background {
	ctx, cancel := context.WithCancel(parent)
	return &background{ctx: ctx, cancel: cancel}
}

// Context is cancelled by Stop.
func (b *background) Context() context.Context { return b.ctx }

// Go runs f on its own goroutine with the background context.
func (b *background) Go(f func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f(b.ctx)
	}()
}

// CloseAfter registers c to be closed by Stop. Closers run in reverse
// registration order.
func (b *background) CloseAfter(c io.Closer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closers = append(b.closers, c)
}

// Stop cancels the context, waits for every goroutine and then closes the
// registered resources.
func (b *background) Stop() error {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
