package server

import "sync/atomic"

// ConnectionLimiter caps the number of concurrent client sessions per
// listener. Slot accounting is lock-free; the accept loop rejects the
// connection outright when no slot is free.
type ConnectionLimiter struct {
	limit  int64
	active atomic.Int64
}

// NewConnectionLimiter creates a limiter allowing at most limit
// concurrent sessions.
func NewConnectionLimiter(limit int) *ConnectionLimiter {
	return &ConnectionLimiter{limit: int64(limit)}
}

// TryAcquire claims a session slot, reporting false when the limit is
// already reached.
func (l *ConnectionLimiter) TryAcquire() bool {
	for {
		n := l.active.Load()
		if n >= l.limit {
			return false
		}
		if l.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release frees a slot claimed by TryAcquire.
func (l *ConnectionLimiter) Release() {
	l.active.Add(-1)
}

// Current returns the number of slots currently claimed.
func (l *ConnectionLimiter) Current() int64 {
	return l.active.Load()
}
