// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusDispatch
	StatusPreempt
	StatusYield
	StatusBlock
	StatusWake
	StatusNiceChange
	StatusFinish
	StatusTick
)

// StatusEvent is emitted every tick or on key actions
type StatusEvent struct {
	Now      time.Duration // scheduler clock at emission
	Kind     StatusKind
	TaskID   TaskID
	Vruntime int64
	Deadline int64
	Ran      time.Duration // total real time the task has been charged
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusYield:
		return "Yield"
	case StatusBlock:
		return "Block"
	case StatusWake:
		return "Wake"
	case StatusNiceChange:
		return "NiceChange"
	case StatusFinish:
		return "Finish"
	case StatusTick:
		return "Tick"
	default:
		return "Unknown"
	}
}
