package pld

import "sync"

// Fake is an in-memory Reader for tests and for running on hardware
// without the PLD pin wired up.
type Fake struct {
	mu      sync.Mutex
	present bool
	err     error
	closed  bool
}

// NewFake returns a fake reader reporting the given AC state.
func NewFake(present bool) *Fake {
	return &Fake{present: present}
}

// Set changes the reported AC state.
func (f *Fake) Set(present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present = present
}

// SetError makes subsequent reads fail with err.
func (f *Fake) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) ACPresent() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.present, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
