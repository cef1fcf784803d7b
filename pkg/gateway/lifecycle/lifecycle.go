package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lifecycle is process state shared across handlers: readiness draining
// during graceful shutdown and the count of call turns still running.
type Lifecycle struct {
	draining atomic.Bool
	inFlight atomic.Int64
	turns    sync.WaitGroup
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

// StartTurn registers a running turn. The returned func marks it done.
func (l *Lifecycle) StartTurn() (done func()) {
	if l == nil {
		return func() {}
	}
	l.turns.Add(1)
	l.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.inFlight.Add(-1)
			l.turns.Done()
		})
	}
}

// InFlight returns the number of running turns.
func (l *Lifecycle) InFlight() int64 {
	if l == nil {
		return 0
	}
	return l.inFlight.Load()
}

// WaitTurns blocks until every running turn has finished or ctx ends.
func (l *Lifecycle) WaitTurns(ctx context.Context) error {
	if l == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		l.turns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
