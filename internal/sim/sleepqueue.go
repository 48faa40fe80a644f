// internal/sim/sleepqueue.go

package sim

import (
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"

	"fairq/internal/sched"
)

// SleepQueue orders blocked tasks by wake time so the simulation can wake
// exactly the due ones each tick.
type SleepQueue struct {
	rbt *redblacktree.Tree
}

// wakeKey is used as a key in the red-black tree.
type wakeKey struct {
	at time.Duration
	id sched.TaskID
}

// wakeKey implements the Comparable interface for red-black tree ordering.
func wakeCmp(a, b any) int {
	ka, kb := a.(wakeKey), b.(wakeKey)
	switch {
	case ka.at < kb.at:
		return -1
	case ka.at > kb.at:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// NewSleepQueue creates an empty sleep queue.
func NewSleepQueue() *SleepQueue {
	return &SleepQueue{rbt: redblacktree.NewWith(wakeCmp)}
}

// Push schedules a wake for the task at the given time.
func (q *SleepQueue) Push(id sched.TaskID, at time.Duration) {
	q.rbt.Put(wakeKey{at: at, id: id}, id)
}

// PopDue removes and returns every task due at or before now, earliest
// first.
func (q *SleepQueue) PopDue(now time.Duration) []sched.TaskID {
	var due []sched.TaskID
	for {
		node := q.rbt.Left()
		if node == nil {
			break
		}
		key := node.Key.(wakeKey)
		if key.at > now {
			break
		}
		q.rbt.Remove(key)
		due = append(due, key.id)
	}
	return due
}

// Drop removes a pending wake, if any, for the task. Needed when a sleeping
// task is terminated out from under its timer.
func (q *SleepQueue) Drop(id sched.TaskID, at time.Duration) {
	q.rbt.Remove(wakeKey{at: at, id: id})
}

// Len returns how many tasks are asleep.
func (q *SleepQueue) Len() int {
	return q.rbt.Size()
}

// Next returns the earliest pending wake time.
func (q *SleepQueue) Next() (time.Duration, bool) {
	node := q.rbt.Left()
	if node == nil {
		return 0, false
	}
	return node.Key.(wakeKey).at, true
}
