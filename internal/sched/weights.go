package sched

import "time"

// Niceness bounds, inclusive.
const (
	MinNiceness = -20
	MaxNiceness = 19
)

// Nice0Load is the reference weight: the weight of a niceness-0 task. Virtual
// time advances at exactly real-time rate for a task of this weight.
const Nice0Load int64 = 1024

// niceToWeight maps niceness [-20, 19] to a scheduling weight. Each step is
// roughly a 1.25x change in CPU share, with niceness 0 pinned at Nice0Load.
// Strictly decreasing: lower niceness means a heavier, more entitled task.
var niceToWeight = [40]int64{
	/* -20 */ 88761, 71755, 56483, 46273, 36291,
	/* -15 */ 29154, 23254, 18705, 14949, 11916,
	/* -10 */ 9548, 7620, 6100, 4904, 3906,
	/*  -5 */ 3121, 2501, 1991, 1586, 1277,
	/*   0 */ 1024, 820, 655, 526, 423,
	/*   5 */ 335, 272, 215, 172, 137,
	/*  10 */ 110, 87, 70, 56, 45,
	/*  15 */ 36, 29, 23, 18, 15,
}

// WeightOf returns the scheduling weight for a niceness level.
func WeightOf(nice int) (int64, error) {
	if nice < MinNiceness || nice > MaxNiceness {
		return 0, ErrInvalidNiceness
	}
	return niceToWeight[nice-MinNiceness], nil
}

// CalcDelta scales delta by weight/total. It is the share helper behind slice
// assignment: a task's slice of a latency window is the window scaled by its
// fraction of the total queued weight.
func CalcDelta(delta time.Duration, weight, total int64) time.Duration {
	if total <= 0 {
		return delta
	}
	return time.Duration(int64(delta) * weight / total)
}

// CalcDeltaFair converts a real-time delta into virtual time for a task of
// the given weight: vdelta = delta * Nice0Load / weight. Heavier tasks accrue
// virtual time more slowly and therefore run longer for the same vruntime
// budget.
func CalcDeltaFair(delta time.Duration, weight int64) time.Duration {
	return CalcDelta(delta, Nice0Load, weight)
}
