package sched

import "time"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	StateRunnable   TaskState = "RUNNABLE"
	StateRunning    TaskState = "RUNNING"
	StateBlocked    TaskState = "BLOCKED"
	StateTerminated TaskState = "TERMINATED"
)

// String returns the string representation of the task state.
func (s TaskState) String() string {
	return string(s)
}

// IsTerminal returns true if the task is in a final state.
func (s TaskState) IsTerminal() bool {
	return s == StateTerminated
}

// ValidTransitions defines the allowed state transitions. Exactly one task is
// Running per runqueue; Blocked and Terminated tasks are off the timeline.
var ValidTransitions = map[TaskState][]TaskState{
	StateRunnable: {StateRunning, StateTerminated},
	StateRunning:  {StateRunnable, StateBlocked, StateTerminated},
	StateBlocked:  {StateRunnable, StateTerminated},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	for _, allowed := range ValidTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Task represents one schedulable task unit. All fields are owned by the
// scheduler while the task is live; callers treat returned pointers as
// read-only snapshots.
type Task struct {
	ID     TaskID
	Nice   int   // niceness in [-20, 19], lower means more entitled
	Weight int64 // derived from Nice, cached until renice

	// Vruntime is accumulated virtual time in nanoseconds: real runtime
	// scaled by Nice0Load/Weight. It keys the timeline and is frozen while
	// the task is queued; only the running task's advances.
	Vruntime int64

	// Deadline is the virtual time at which the current slice's entitlement
	// expires. Selection always takes the earliest eligible deadline.
	Deadline int64

	// Vlag is dual-use. While the task is off the queue it stores the
	// clamped lag checkpoint taken when it blocked. At dispatch it is
	// overwritten with a copy of Deadline; as long as that equality holds
	// the task still owns an unconsumed slice.
	Vlag int64

	// Slice is the real-time request backing Deadline.
	Slice time.Duration

	ExecStart      time.Duration // accounting timestamp of the current run
	SumExecRuntime time.Duration // total real time attributed so far

	State TaskState
	OnRq  bool // part of the competition: queued or running
}
