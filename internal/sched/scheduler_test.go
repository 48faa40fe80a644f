package sched

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	return New(defaultConfig(), zerolog.Nop(), nil)
}

// drainKinds empties the status channel and returns the non-tick event kinds
// in order.
func drainKinds(s *Scheduler) []StatusKind {
	var kinds []StatusKind
	for {
		select {
		case ev := <-s.StatusChannel():
			if ev.Kind != StatusTick {
				kinds = append(kinds, ev.Kind)
			}
		default:
			return kinds
		}
	}
}

// tickAndPick advances the scheduler one tick at a time with an immediate
// re-pick, the way a dispatcher drives it.
func tickAndPick(s *Scheduler, from, to time.Duration) {
	for now := from; now <= to; now += time.Millisecond {
		s.Tick(now)
		s.PickNext(now)
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// TestTwoEqualTasksStayWithinOneTick runs two niceness-0 tasks for 100 ticks
// with immediate re-picks: they must alternate tightly, ending with equal
// CPU time and vruntimes less than one tick's virtual time apart.
func TestTwoEqualTasksStayWithinOneTick(t *testing.T) {
	s := newTestScheduler(t)
	a, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	b, err := s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	require.NotNil(t, s.PickNext(0))

	tickAndPick(s, time.Millisecond, 100*time.Millisecond)

	assert.Less(t, absInt64(a.Vruntime-b.Vruntime), int64(time.Millisecond))

	ranA, err := s.SumExecRuntime(1)
	require.NoError(t, err)
	ranB, err := s.SumExecRuntime(2)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, ranA+ranB, "every tick must be charged to somebody")
	assert.InDelta(t, float64(50*time.Millisecond), float64(ranA), float64(3*time.Millisecond))
	assert.InDelta(t, float64(50*time.Millisecond), float64(ranB), float64(3*time.Millisecond))
}

// TestEqualWeightConvergence checks that with three equal tasks the vruntime
// spread stays bounded by one slice regardless of how long the run is.
func TestEqualWeightConvergence(t *testing.T) {
	s := newTestScheduler(t)
	var tasks []*Task
	for id := TaskID(1); id <= 3; id++ {
		task, err := s.CreateTask(0, id, 0)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	s.PickNext(0)

	tickAndPick(s, time.Millisecond, 2*time.Second)

	lo, hi := tasks[0].Vruntime, tasks[0].Vruntime
	var total time.Duration
	for _, task := range tasks {
		if task.Vruntime < lo {
			lo = task.Vruntime
		}
		if task.Vruntime > hi {
			hi = task.Vruntime
		}
		ran, err := s.SumExecRuntime(task.ID)
		require.NoError(t, err)
		total += ran
		assert.InDelta(t, float64(2*time.Second)/3, float64(ran), float64(10*time.Millisecond))
	}
	assert.Equal(t, 2*time.Second, total)
	// 3 tasks in a 6ms window get 2ms slices; the spread never exceeds a
	// slice plus the tick quantum
	assert.LessOrEqual(t, hi-lo, int64(3*time.Millisecond))
}

// TestWeightProportionality runs a niceness -5 task against a niceness 0
// task: CPU time must split close to the 3121:1024 weight ratio.
func TestWeightProportionality(t *testing.T) {
	s := newTestScheduler(t)
	_, err := s.CreateTask(0, 1, -5)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	s.PickNext(0)

	tickAndPick(s, time.Millisecond, 3*time.Second)

	heavy, err := s.SumExecRuntime(1)
	require.NoError(t, err)
	light, err := s.SumExecRuntime(2)
	require.NoError(t, err)
	require.Positive(t, light)

	ratio := float64(heavy) / float64(light)
	assert.Greater(t, ratio, 2.8, "heavy task underserved")
	assert.Less(t, ratio, 3.3, "heavy task overserved")
}

// TestSliceFloor checks that with more tasks than target_latency can cover,
// every slice bottoms out at exactly min_granularity.
func TestSliceFloor(t *testing.T) {
	s := newTestScheduler(t)
	assert.Equal(t, time.Millisecond, s.sliceFor(1024, 10*1024))

	var tasks []*Task
	for id := TaskID(1); id <= 10; id++ {
		task, err := s.CreateTask(0, id, 0)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	s.PickNext(0)
	tickAndPick(s, time.Millisecond, 100*time.Millisecond)

	for _, task := range tasks {
		assert.Equal(t, time.Millisecond, task.Slice, "task %d slice above the floor", task.ID)
	}
}

// TestWakeupCreditBoundsSleeperBoost blocks one of three tasks for a full
// second: on wake its entitlement must be limited to the configured credit,
// so the sleeper cannot monopolize the CPU afterwards.
func TestWakeupCreditBoundsSleeperBoost(t *testing.T) {
	s := newTestScheduler(t)
	for id := TaskID(1); id <= 3; id++ {
		_, err := s.CreateTask(0, id, 0)
		require.NoError(t, err)
	}
	s.PickNext(0)

	// run until task 3 owns the CPU, then park it
	blockAt := time.Duration(-1)
	for now := time.Millisecond; now <= 20*time.Millisecond; now += time.Millisecond {
		s.Tick(now)
		s.PickNext(now)
		if curr := s.Current(); curr != nil && curr.ID == 3 {
			blockAt = now
			break
		}
	}
	require.NotEqual(t, time.Duration(-1), blockAt, "task 3 never got the CPU")
	require.NoError(t, s.Block(blockAt, 3))

	wakeAt := blockAt + time.Second
	tickAndPick(s, blockAt+time.Millisecond, wakeAt)

	baseline := map[TaskID]time.Duration{}
	for id := TaskID(1); id <= 2; id++ {
		ran, err := s.SumExecRuntime(id)
		require.NoError(t, err)
		baseline[id] = ran
	}
	sleeperBase, err := s.SumExecRuntime(3)
	require.NoError(t, err)

	_, err = s.Wake(wakeAt, 3)
	require.NoError(t, err)

	// the lag clamp caps the boost at one target latency window, scaled on
	// placement by (load+w)/load = 3/2
	lag, err := s.Lag(3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lag, int64(-9*time.Millisecond)-1)

	tickAndPick(s, wakeAt+time.Millisecond, wakeAt+120*time.Millisecond)

	sleeper, err := s.SumExecRuntime(3)
	require.NoError(t, err)
	sleeperRan := sleeper - sleeperBase
	assert.Less(t, sleeperRan, 60*time.Millisecond, "sleeper monopolized the CPU after waking")
	for id := TaskID(1); id <= 2; id++ {
		ran, err := s.SumExecRuntime(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ran-baseline[id], 30*time.Millisecond, "task %d starved by the waking sleeper", id)
	}
}

// TestRunToParityKeepsIncumbent replays the opening ticks of the two-task
// scenario: mid-slice the incumbent holds the CPU even though the queued
// task's deadline is earlier, and loses it the moment it goes ineligible.
func TestRunToParityKeepsIncumbent(t *testing.T) {
	s := newTestScheduler(t)
	a, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	b, err := s.CreateTask(0, 2, 0)
	require.NoError(t, err)

	// second-created task got the smaller slice, hence the earlier deadline
	require.Same(t, b, s.PickNext(0))

	s.Tick(1 * time.Millisecond)
	require.Same(t, a, s.PickNext(1*time.Millisecond), "b ran past the average and must hand over")

	s.Tick(2 * time.Millisecond)
	require.Less(t, b.Deadline, a.Deadline)
	assert.Same(t, a, s.PickNext(2*time.Millisecond), "a is eligible and mid-slice: protected from b's earlier deadline")

	s.Tick(3 * time.Millisecond)
	assert.Same(t, b, s.PickNext(3*time.Millisecond), "a went ineligible, protection ends")
}

// TestCreateTaskValidation covers the creation error paths.
func TestCreateTaskValidation(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.CreateTask(0, 1, -21)
	assert.ErrorIs(t, err, ErrInvalidNiceness)
	_, err = s.CreateTask(0, 1, 20)
	assert.ErrorIs(t, err, ErrInvalidNiceness)

	_, err = s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 1, 5)
	assert.ErrorIs(t, err, ErrTaskExists)
}

// TestLifecycleErrors covers rejected events: unknown ids and transitions
// that are not legal from the task's current state.
func TestLifecycleErrors(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Wake(0, 99)
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.ErrorIs(t, s.Block(0, 99), ErrUnknownTask)
	assert.ErrorIs(t, s.Yield(0, 99), ErrUnknownTask)
	assert.ErrorIs(t, s.Terminate(0, 99), ErrUnknownTask)
	_, err = s.SumExecRuntime(99)
	assert.ErrorIs(t, err, ErrUnknownTask)
	_, err = s.Lag(99)
	assert.ErrorIs(t, err, ErrUnknownTask)

	task, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)

	// queued, not running: blocking and yielding are not legal
	var inv *InvalidTransitionError
	err = s.Block(0, 1)
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, StateRunnable, inv.From)
	assert.Equal(t, StateBlocked, inv.To)
	err = s.Yield(0, 1)
	require.ErrorAs(t, err, &inv)

	// waking a task that is not blocked is a stale event, silently dropped
	preempt, err := s.Wake(0, 1)
	assert.NoError(t, err)
	assert.False(t, preempt)
	assert.Equal(t, StateRunnable, task.State)

	require.NoError(t, s.Terminate(0, 1))
	assert.ErrorIs(t, s.Terminate(0, 1), ErrUnknownTask)
}

// TestTerminateFromAnyLiveState retires tasks while runnable, running, and
// blocked.
func TestTerminateFromAnyLiveState(t *testing.T) {
	s := newTestScheduler(t)
	for id := TaskID(1); id <= 3; id++ {
		_, err := s.CreateTask(0, id, 0)
		require.NoError(t, err)
	}
	curr := s.PickNext(0)
	require.NotNil(t, curr)

	require.NoError(t, s.Block(time.Millisecond, curr.ID))
	next := s.PickNext(time.Millisecond)
	require.NotNil(t, next)
	require.NotEqual(t, curr.ID, next.ID)

	assert.NoError(t, s.Terminate(2*time.Millisecond, curr.ID), "terminate blocked")
	assert.NoError(t, s.Terminate(2*time.Millisecond, next.ID), "terminate running")
	assert.Equal(t, 1, s.Len())
	last := s.PickNext(2 * time.Millisecond)
	require.NotNil(t, last)
	assert.NoError(t, s.Terminate(3*time.Millisecond, last.ID), "terminate the survivor")
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.PickNext(3*time.Millisecond))
}

// TestClockRegression checks stale tick timestamps are counted and charged
// as zero delta.
func TestClockRegression(t *testing.T) {
	m := NewMetrics(nil)
	s := New(defaultConfig(), zerolog.Nop(), m)
	task, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	s.PickNext(0)

	s.Tick(5 * time.Millisecond)
	before := task.Vruntime

	assert.False(t, s.Tick(5*time.Millisecond), "same timestamp must be rejected")
	assert.False(t, s.Tick(3*time.Millisecond), "earlier timestamp must be rejected")
	assert.Equal(t, before, task.Vruntime, "regressed ticks must not charge time")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ClockRegressions))

	assert.NotPanics(t, func() { s.Tick(6 * time.Millisecond) })
}

// TestIdlePickIdempotence: picking from an empty scheduler returns nothing,
// repeatedly, with no side effects, and the idle transition is announced
// exactly once.
func TestIdlePickIdempotence(t *testing.T) {
	s := newTestScheduler(t)
	for i := 0; i < 3; i++ {
		assert.Nil(t, s.PickNext(time.Duration(i)*time.Millisecond))
	}
	assert.Empty(t, drainKinds(s), "idle picks on a fresh scheduler are silent")

	_, err := s.CreateTask(10*time.Millisecond, 1, 0)
	require.NoError(t, err)
	require.NotNil(t, s.PickNext(10*time.Millisecond))
	require.NoError(t, s.Terminate(11*time.Millisecond, 1))
	drainKinds(s)

	assert.Nil(t, s.PickNext(11*time.Millisecond))
	assert.Nil(t, s.PickNext(12*time.Millisecond))
	assert.Nil(t, s.PickNext(13*time.Millisecond))
	assert.Equal(t, []StatusKind{StatusIdle}, drainKinds(s), "going idle is announced once")
}

// TestTickResched checks the resched hint from Tick: false while idle with
// nothing queued, true when something is runnable but the CPU is free.
func TestTickResched(t *testing.T) {
	s := newTestScheduler(t)
	assert.False(t, s.Tick(time.Millisecond))

	_, err := s.CreateTask(time.Millisecond, 1, 0)
	require.NoError(t, err)
	assert.True(t, s.Tick(2*time.Millisecond), "runnable work with an idle CPU needs a pick")

	require.NotNil(t, s.PickNext(2*time.Millisecond))
	assert.False(t, s.Tick(3*time.Millisecond), "a lone running task never needs a resched")
}

// TestWakeHint pins the reschedule hint: true when the CPU is idle, false
// when the woken task comes back ahead of the average.
func TestWakeHint(t *testing.T) {
	t.Run("idle wake", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		require.NotNil(t, s.PickNext(0))
		require.NoError(t, s.Block(time.Millisecond, 1))
		require.Nil(t, s.PickNext(time.Millisecond))

		preempt, err := s.Wake(2*time.Millisecond, 1)
		require.NoError(t, err)
		assert.True(t, preempt, "waking onto an idle CPU always needs a pick")
	})

	t.Run("wake ahead of the average", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		b, err := s.CreateTask(0, 2, 0)
		require.NoError(t, err)
		require.Same(t, b, s.PickNext(0))

		// b ran ahead of the average, then blocked: it banked negative lag
		s.Tick(time.Millisecond)
		require.NoError(t, s.Block(time.Millisecond, 2))
		require.NotNil(t, s.PickNext(time.Millisecond))

		preempt, err := s.Wake(2*time.Millisecond, 2)
		require.NoError(t, err)
		assert.False(t, preempt, "a task that owes time must not preempt")
		assert.Positive(t, b.Vruntime-s.rq.AvgVruntime(), "owed time shows as positive relative vruntime")
	})
}

// TestSetNiceness covers renice across the three task situations: running,
// queued, and blocked.
func TestSetNiceness(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		s := newTestScheduler(t)
		assert.ErrorIs(t, s.SetNiceness(0, 9, 0), ErrUnknownTask)
		_, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, s.SetNiceness(0, 1, -30), ErrInvalidNiceness)
	})

	t.Run("running task keeps its real-time lag", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		b, err := s.CreateTask(0, 2, 0)
		require.NoError(t, err)
		require.Same(t, b, s.PickNext(0))
		s.Tick(time.Millisecond)

		V := s.rq.AvgVruntime()
		oldWeight := b.Weight
		lagBefore := (V - b.Vruntime) * oldWeight
		spanBefore := (b.Deadline - b.Vruntime) * oldWeight

		require.NoError(t, s.SetNiceness(time.Millisecond, 2, -5))
		require.Equal(t, int64(3121), b.Weight)

		lagAfter := (V - b.Vruntime) * b.Weight
		spanAfter := (b.Deadline - b.Vruntime) * b.Weight
		assert.LessOrEqual(t, absInt64(lagBefore-lagAfter), b.Weight, "lag in real time must survive the renice")
		assert.LessOrEqual(t, absInt64(spanBefore-spanAfter), b.Weight, "remaining entitlement must survive the renice")
	})

	t.Run("queued task is repositioned", func(t *testing.T) {
		s := newTestScheduler(t)
		a, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		_, err = s.CreateTask(0, 2, 0)
		require.NoError(t, err)
		curr := s.PickNext(0)
		require.NotSame(t, a, curr)

		require.NoError(t, s.SetNiceness(0, 1, 10))
		assert.Equal(t, int64(110), a.Weight)
		verifyRunqueue(t, s.rq)

		// the tree still finds it under the new key
		require.NoError(t, s.Terminate(time.Millisecond, curr.ID))
		assert.Same(t, a, s.PickNext(time.Millisecond))
	})

	t.Run("blocked task lag is rescaled", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.CreateTask(0, 1, 0)
		require.NoError(t, err)
		b, err := s.CreateTask(0, 2, 0)
		require.NoError(t, err)
		require.Same(t, b, s.PickNext(0))
		s.Tick(time.Millisecond)
		require.NoError(t, s.Block(time.Millisecond, 2))
		require.Equal(t, int64(-500_000), b.Vlag)

		require.NoError(t, s.SetNiceness(time.Millisecond, 2, -5))
		assert.Equal(t, int64(-500_000*1024/3121), b.Vlag)
	})
}

// TestYield pushes the incumbent's deadline out so a competitor gets the
// CPU on the next pick, without the incumbent losing runnable state.
func TestYield(t *testing.T) {
	s := newTestScheduler(t)
	a, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	b, err := s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	require.Same(t, b, s.PickNext(0))

	before := b.Deadline
	require.NoError(t, s.Yield(0, 2))
	assert.Greater(t, b.Deadline, before)

	assert.Same(t, a, s.PickNext(0), "yield hands the CPU to the competitor")
	assert.Equal(t, StateRunnable, b.State)
	assert.Equal(t, 2, s.Len())
}

// TestEventStream drives one full lifecycle and pins the emitted sequence.
func TestEventStream(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	s.PickNext(0)
	assert.Equal(t, []StatusKind{StatusEnqueue, StatusEnqueue, StatusDispatch}, drainKinds(s))

	s.Tick(time.Millisecond)
	require.NoError(t, s.Yield(time.Millisecond, 2))
	s.PickNext(time.Millisecond)
	assert.Equal(t, []StatusKind{StatusYield, StatusPreempt, StatusDispatch}, drainKinds(s))

	require.NoError(t, s.SetNiceness(time.Millisecond, 2, 1))
	assert.Equal(t, []StatusKind{StatusNiceChange}, drainKinds(s))

	require.NoError(t, s.Block(2*time.Millisecond, 1))
	s.PickNext(2 * time.Millisecond)
	assert.Equal(t, []StatusKind{StatusBlock, StatusDispatch}, drainKinds(s))

	_, err = s.Wake(3*time.Millisecond, 1)
	require.NoError(t, err)
	require.NoError(t, s.Terminate(3*time.Millisecond, 2))
	s.PickNext(3 * time.Millisecond)
	assert.Equal(t, []StatusKind{StatusWake, StatusFinish, StatusDispatch}, drainKinds(s))

	require.NoError(t, s.Terminate(4*time.Millisecond, 1))
	s.PickNext(4 * time.Millisecond)
	s.PickNext(5 * time.Millisecond)
	assert.Equal(t, []StatusKind{StatusFinish, StatusIdle}, drainKinds(s))
}

// TestEventDropCounting fills a tiny status buffer and checks the overflow
// is counted instead of blocking.
func TestEventDropCounting(t *testing.T) {
	cfg := defaultConfig()
	cfg.EventBuffer = 1
	m := NewMetrics(nil)
	s := New(cfg, zerolog.Nop(), m)

	_, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), s.DroppedEvents())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DroppedEvents))
	assert.Len(t, drainKinds(s), 1)
}

// TestLagSignConvention: the running side of the competition carries
// positive lag, the waiting side negative, blocked tasks report their
// checkpoint.
func TestLagSignConvention(t *testing.T) {
	s := newTestScheduler(t)
	_, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	b, err := s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	require.Same(t, b, s.PickNext(0))
	s.Tick(time.Millisecond)

	ranLag, err := s.Lag(2)
	require.NoError(t, err)
	assert.Positive(t, ranLag, "the task that just ran is ahead of the average")
	waitLag, err := s.Lag(1)
	require.NoError(t, err)
	assert.Negative(t, waitLag, "the waiting task is behind the average")

	require.NoError(t, s.Block(time.Millisecond, 2))
	blockedLag, err := s.Lag(2)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), blockedLag, "blocked lag reports the checkpoint under the same sign")
}

// TestGauges tracks queue depth and total weight through a lifecycle.
func TestGauges(t *testing.T) {
	m := NewMetrics(nil)
	s := New(defaultConfig(), zerolog.Nop(), m)

	_, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 2, -5)
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, float64(1024+3121), testutil.ToFloat64(m.TotalWeight))

	require.NotNil(t, s.PickNext(0))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.QueueDepth), "the running task still counts")

	require.NoError(t, s.Terminate(time.Millisecond, 1))
	require.NoError(t, s.Terminate(time.Millisecond, 2))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TotalWeight))
}

// TestDispatchCounters checks the dispatch/preempt/block/wake/finish
// counters move with the lifecycle.
func TestDispatchCounters(t *testing.T) {
	m := NewMetrics(nil)
	s := New(defaultConfig(), zerolog.Nop(), m)

	_, err := s.CreateTask(0, 1, 0)
	require.NoError(t, err)
	_, err = s.CreateTask(0, 2, 0)
	require.NoError(t, err)
	s.PickNext(0)
	tickAndPick(s, time.Millisecond, 10*time.Millisecond)

	assert.Positive(t, testutil.ToFloat64(m.Dispatches))
	assert.Positive(t, testutil.ToFloat64(m.Preemptions))

	curr := s.Current()
	require.NotNil(t, curr)
	require.NoError(t, s.Block(11*time.Millisecond, curr.ID))
	_, err = s.Wake(12*time.Millisecond, curr.ID)
	require.NoError(t, err)
	require.NoError(t, s.Terminate(13*time.Millisecond, 1))
	require.NoError(t, s.Terminate(13*time.Millisecond, 2))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Blocks))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Wakeups))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Finished))
}
