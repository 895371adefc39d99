package asyncruntime

import "context"

// semaphore is a counting semaphore built from a buffered channel — the
// common Go idiom for bounded concurrency (no third-party semaphore package
// appears anywhere in the retrieved pack, so this is the stdlib-only
// concern DESIGN.md documents as justified).
type semaphore struct {
	slots chan struct{}
	cap   int
}

func newSemaphore(n int) *semaphore {
	if n < 1 {
		n = 1
	}
	return &semaphore{slots: make(chan struct{}, n), cap: n}
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	select {
	case <-s.slots:
	default:
	}
}

func (s *semaphore) inUse() int {
	return len(s.slots)
}
