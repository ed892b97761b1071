package queue

import "context"

// HoldQueueLock takes a queue's lock from a test and returns its release.
func (e *Engine) HoldQueueLock(ctx context.Context, queueID string) (func(), error) {
	l, err := e.lane(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
