package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNiceness is returned for niceness values outside [-20, 19].
	ErrInvalidNiceness = errors.New("niceness out of range [-20, 19]")

	// ErrUnknownTask is returned when an event references a task id the
	// scheduler does not know about. This usually means the caller reordered
	// or replayed events; the scheduler rejects them rather than guess.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskExists is returned when creating a task with an id that is
	// already live.
	ErrTaskExists = errors.New("task already exists")
)

// InvalidTransitionError reports an event that is not legal for the task's
// current state, e.g. blocking a task that is not running.
type InvalidTransitionError struct {
	ID   TaskID
	From TaskState
	To   TaskState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %d: invalid state transition %s -> %s", e.ID, e.From, e.To)
}
