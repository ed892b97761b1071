package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation rejects bad input before any state is touched.
	ErrValidation = errors.New("queue: validation failed")
	// ErrQueueClosed means the queue is inactive or outside operating hours.
	ErrQueueClosed = fmt.Errorf("%w: queue is not accepting joins", ErrValidation)
	// ErrCapacityExceeded means the queue is full; the caller may retry later.
	ErrCapacityExceeded = errors.New("queue: capacity exceeded")
	// ErrInvalidState is an illegal transition, usually a stale client view.
	ErrInvalidState = errors.New("queue: invalid state transition")
	// ErrBusy means the queue lock could not be taken in time; retryable.
	ErrBusy = errors.New("queue: busy")
	// ErrNotFound is an unknown queue or session.
	ErrNotFound = errors.New("queue: not found")
)
