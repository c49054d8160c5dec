package db

import "sync"

// deferred is a one-shot signal. Resolve may be called any number of times;
// only the first call has an effect.
type deferred struct {
	ch   chan struct{}
	once sync.Once
}

func newDeferred() *deferred {
	return &deferred{ch: make(chan struct{}, 1)}
}

func (d *deferred) Resolve() {
	d.once.Do(func() {
		d.ch <- struct{}{}
		close(d.ch)
	})
}

// Done is ready once Resolve has been called.
func (d *deferred) Done() <-chan struct{} {
	return d.ch
}
