package server

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// Admission bounds the number of connections served at once
type Admission struct {
	sem   *semaphore.Weighted
	limit int
}

// NewAdmission creates an admission gate with limit slots
func NewAdmission(limit int) *Admission {
	return &Admission{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
	}
}

// Limit returns the number of slots
func (a *Admission) Limit() int {
	return a.limit
}

// TryAcquire takes a slot without blocking. ok is false when every slot is in use.
func (a *Admission) TryAcquire() (*Ticket, bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}
	return &Ticket{release: func() { a.sem.Release(1) }}, true
}

// Ticket is one held admission slot
type Ticket struct {
	once    sync.Once
	release func()
}

// Release gives the slot back. Calls after the first are no-ops.
func (t *Ticket) Release() {
	t.once.Do(t.release)
}
