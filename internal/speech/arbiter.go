package speech

import (
	"fmt"
	"sync"
)

// Arbiter hands out the single device-owner token. Only the holder may drive
// the speaker and the recognizer.
type Arbiter struct {
	mu    sync.Mutex
	owner string
	token uint64
}

type Lease struct {
	a     *Arbiter
	token uint64
	Owner string
}

func (a *Arbiter) Acquire(owner string) (*Lease, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.owner != "" {
		return nil, fmt.Errorf("%s: %w (held by %s)", owner, ErrDevicesBusy, a.owner)
	}
	a.owner = owner
	a.token++
	return &Lease{a: a, token: a.token, Owner: owner}, nil
}

// Release is idempotent and ignores leases that were already superseded.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.a.mu.Lock()
	defer l.a.mu.Unlock()

	if l.a.token == l.token && l.a.owner == l.Owner {
		l.a.owner = ""
	}
}

func (a *Arbiter) Owner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}
