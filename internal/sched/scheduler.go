// internal/sched/scheduler.go

package sched

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler is a single-runqueue fair scheduler: weighted vruntime accounting
// combined with earliest-eligible-deadline selection. It is a passive
// library; a driver feeds it lifecycle events plus Tick, asks PickNext what
// should run, and every call completes synchronously under one lock. No call
// blocks, allocates unboundedly, or waits on a consumer.
type Scheduler struct {
	// Scheduler-related
	mu       sync.Mutex       // protects the scheduler state
	cfg      Config           // latency targets and slice floor
	rq       *Runqueue        // the timeline of runnable tasks
	tasks    map[TaskID]*Task // every live task by ID, queued or not
	now      time.Duration    // high-water mark of observed time
	lastTick time.Duration    // timestamp of the last accepted tick
	idle     bool             // nothing running and nothing runnable

	// event-stream-related
	statusCh      chan StatusEvent // channel for status events
	droppedEvents uint64           // events lost to a full channel
	dropWarned    bool

	// observability-related
	log zerolog.Logger
	m   *Metrics
}

// New creates a new Scheduler instance with the given configuration. Metrics
// may be nil; an unregistered set is substituted so call sites stay
// unconditional.
func New(cfg Config, logger zerolog.Logger, m *Metrics) *Scheduler {
	if m == nil {
		m = NewMetrics(nil)
	}
	s := &Scheduler{
		cfg:      cfg,
		rq:       NewRunqueue(),
		tasks:    make(map[TaskID]*Task),
		lastTick: -1,
		idle:     true,
		statusCh: make(chan StatusEvent, cfg.EventBuffer),
		log:      logger.With().Str("component", "scheduler").Logger(),
		m:        m,
	}
	s.log.Debug().
		Dur("tick", cfg.TickInterval()).
		Dur("target_latency", cfg.TargetLatency()).
		Dur("min_granularity", cfg.MinGranularity()).
		Dur("wakeup_credit", cfg.WakeupCredit()).
		Msg("scheduler initialized")
	return s
}

// StatusChannel exposes read-only stream (optional consumers).
func (s *Scheduler) StatusChannel() <-chan StatusEvent { return s.statusCh }

// DroppedEvents reports how many status events were lost to a full channel.
func (s *Scheduler) DroppedEvents() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedEvents
}

// Now returns the latest timestamp the scheduler has seen.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// CreateTask registers a new task and queues it. Fresh tasks start with zero
// lag: they are placed at the current weighted-average vruntime, neither
// owed nor owing time.
func (s *Scheduler) CreateTask(now time.Duration, id TaskID, nice int) (*Task, error) {
	weight, err := WeightOf(nice)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, dup := s.tasks[id]; dup {
		s.mu.Unlock()
		return nil, ErrTaskExists
	}
	s.updateCurrent(now)

	t := &Task{
		ID:     id,
		Nice:   nice,
		Weight: weight,
		State:  StateRunnable,
		OnRq:   true,
	}
	s.place(t)
	s.rq.Enqueue(t)
	s.rq.UpdateMinVruntime()
	s.tasks[id] = t

	s.log.Info().
		Uint64("task", uint64(id)).
		Int("nice", nice).
		Int64("weight", weight).
		Int64("vruntime", t.Vruntime).
		Msg("task created")
	s.emit(StatusEvent{Now: s.now, Kind: StatusEnqueue, TaskID: id, Vruntime: t.Vruntime, Deadline: t.Deadline})
	s.syncGauges()
	s.mu.Unlock()
	return t, nil
}

// Wake moves a blocked task back to the runqueue. The returned hint is true
// when the caller should reschedule: either the CPU is idle or the woken
// task now beats the running one. A wake for a task that is not blocked is
// a stale event and is ignored.
func (s *Scheduler) Wake(now time.Duration, id TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false, ErrUnknownTask
	}
	if t.State != StateBlocked {
		return false, nil
	}
	s.updateCurrent(now)

	t.State = StateRunnable
	t.OnRq = true
	s.place(t)
	s.rq.Enqueue(t)
	s.rq.UpdateMinVruntime()

	s.log.Debug().
		Uint64("task", uint64(id)).
		Int64("vruntime", t.Vruntime).
		Int64("deadline", t.Deadline).
		Msg("task woke")
	s.emit(StatusEvent{Now: s.now, Kind: StatusWake, TaskID: id, Vruntime: t.Vruntime, Deadline: t.Deadline, Ran: t.SumExecRuntime})
	s.m.Wakeups.Inc()
	s.syncGauges()

	if s.rq.curr == nil {
		return true, nil
	}
	return s.rq.PickEEVDF() == t, nil
}

// Block parks the running task: only the running task can wait on something.
// Its lag against the queue average is checkpointed, clamped to the wakeup
// credit, so a long sleep cannot bank unbounded entitlement.
func (s *Scheduler) Block(now time.Duration, id TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrUnknownTask
	}
	if t.State != StateRunning {
		return &InvalidTransitionError{ID: id, From: t.State, To: StateBlocked}
	}
	s.updateCurrent(now)

	t.Vlag = s.clampedLag(t)
	s.rq.curr = nil
	t.OnRq = false
	t.State = StateBlocked
	s.rq.UpdateMinVruntime()

	s.log.Debug().
		Uint64("task", uint64(id)).
		Int64("vlag", t.Vlag).
		Msg("task blocked")
	s.emit(StatusEvent{Now: s.now, Kind: StatusBlock, TaskID: id, Vruntime: t.Vruntime, Deadline: t.Deadline, Ran: t.SumExecRuntime})
	s.m.Blocks.Inc()
	s.syncGauges()
	return nil
}

// Terminate retires a task from any live state.
func (s *Scheduler) Terminate(now time.Duration, id TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrUnknownTask
	}
	s.updateCurrent(now)

	switch t.State {
	case StateRunning:
		s.rq.curr = nil
	case StateRunnable:
		s.rq.Dequeue(t)
	}
	t.State = StateTerminated
	t.OnRq = false
	delete(s.tasks, id)
	s.rq.UpdateMinVruntime()

	s.log.Info().
		Uint64("task", uint64(id)).
		Dur("ran", t.SumExecRuntime).
		Msg("task terminated")
	s.emit(StatusEvent{Now: s.now, Kind: StatusFinish, TaskID: id, Vruntime: t.Vruntime, Ran: t.SumExecRuntime})
	s.m.Finished.Inc()
	s.syncGauges()
	return nil
}

// Yield lets the running task give up the rest of its slice. Its deadline is
// pushed out by one slice's worth of virtual time, which also voids the
// run-to-parity protection, so the next pick reconsiders everyone.
func (s *Scheduler) Yield(now time.Duration, id TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrUnknownTask
	}
	if t.State != StateRunning {
		return &InvalidTransitionError{ID: id, From: t.State, To: StateRunnable}
	}
	s.updateCurrent(now)

	t.Deadline += int64(CalcDeltaFair(t.Slice, t.Weight))

	s.emit(StatusEvent{Now: s.now, Kind: StatusYield, TaskID: id, Vruntime: t.Vruntime, Deadline: t.Deadline, Ran: t.SumExecRuntime})
	return nil
}

// SetNiceness changes a task's niceness on the fly. For a task in the
// competition the switch preserves its real-time lag and remaining
// entitlement: lag and the deadline offset are rescaled by old/new weight
// around the queue average, so the change takes effect without handing out
// or confiscating time. A blocked task just has its checkpointed lag
// rescaled.
func (s *Scheduler) SetNiceness(now time.Duration, id TaskID, nice int) error {
	weight, err := WeightOf(nice)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrUnknownTask
	}
	s.updateCurrent(now)

	oldWeight := t.Weight
	if t.OnRq {
		queued := t.State == StateRunnable
		V := s.rq.AvgVruntime()
		if queued {
			s.rq.Dequeue(t)
		}
		lag := (V - t.Vruntime) * oldWeight / weight
		vdeadline := (t.Deadline - t.Vruntime) * oldWeight / weight
		t.Nice, t.Weight = nice, weight
		t.Vruntime = V - lag
		t.Deadline = t.Vruntime + vdeadline
		if queued {
			s.rq.Enqueue(t)
		}
		s.rq.UpdateMinVruntime()
	} else {
		t.Vlag = t.Vlag * oldWeight / weight
		t.Nice, t.Weight = nice, weight
	}

	s.log.Info().
		Uint64("task", uint64(id)).
		Int("nice", nice).
		Int64("weight", weight).
		Msg("task reniced")
	s.emit(StatusEvent{Now: s.now, Kind: StatusNiceChange, TaskID: id, Vruntime: t.Vruntime, Deadline: t.Deadline, Ran: t.SumExecRuntime})
	s.syncGauges()
	return nil
}

// Tick charges the running task for the time since the last accounting point
// and reports whether the caller should reschedule. A timestamp that does
// not advance past the previous tick is a clock regression: logged, counted,
// and skipped with zero delta.
func (s *Scheduler) Tick(now time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now <= s.lastTick {
		s.log.Warn().
			Dur("now", now).
			Dur("last_tick", s.lastTick).
			Msg("clock regression, tick skipped")
		s.m.ClockRegressions.Inc()
		return false
	}
	s.lastTick = now
	s.updateCurrent(now)

	curr := s.rq.curr
	var ev StatusEvent
	if curr != nil {
		ev = StatusEvent{Now: s.now, Kind: StatusTick, TaskID: curr.ID, Vruntime: curr.Vruntime, Deadline: curr.Deadline, Ran: curr.SumExecRuntime}
	} else {
		ev = StatusEvent{Now: s.now, Kind: StatusTick}
	}
	s.emit(ev)
	s.syncGauges()

	if curr == nil {
		return s.rq.Len() > 0
	}
	return s.rq.PickEEVDF() != curr
}

// PickNext runs the scheduling decision and installs the winner as the
// running task, returning it. A nil return means idle. Picking is
// idempotent: when the incumbent is still the right choice nothing changes
// and no event is emitted.
func (s *Scheduler) PickNext(now time.Duration) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateCurrent(now)

	prev := s.rq.curr
	next := s.rq.PickEEVDF()
	if next == nil {
		if !s.idle {
			s.idle = true
			s.emit(StatusEvent{Now: s.now, Kind: StatusIdle})
		}
		return nil
	}
	if next == prev {
		return next
	}

	if prev != nil {
		prev.State = StateRunnable
		s.rq.Enqueue(prev)
		s.emit(StatusEvent{Now: s.now, Kind: StatusPreempt, TaskID: prev.ID, Vruntime: prev.Vruntime, Deadline: prev.Deadline, Ran: prev.SumExecRuntime})
		s.m.Preemptions.Inc()
	}

	s.rq.Dequeue(next)
	s.rq.curr = next
	next.State = StateRunning
	next.ExecStart = s.now
	// Dispatch stamp: Vlag mirrors Deadline for as long as the task owns an
	// unconsumed slice, which is what the run-to-parity guard tests.
	next.Vlag = next.Deadline
	s.rq.UpdateMinVruntime()
	s.idle = false

	s.emit(StatusEvent{Now: s.now, Kind: StatusDispatch, TaskID: next.ID, Vruntime: next.Vruntime, Deadline: next.Deadline, Ran: next.SumExecRuntime})
	s.m.Dispatches.Inc()
	s.syncGauges()
	return next
}

// Current returns the running task, or nil when idle.
func (s *Scheduler) Current() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rq.curr
}

// SumExecRuntime reports the real time charged to a task so far.
func (s *Scheduler) SumExecRuntime(id TaskID) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return 0, ErrUnknownTask
	}
	return t.SumExecRuntime, nil
}

// Lag reports a task's vruntime minus the queue's weighted average:
// non-positive means eligible. For a blocked task the checkpointed value is
// reported under the same sign convention.
func (s *Scheduler) Lag(id TaskID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return 0, ErrUnknownTask
	}
	if t.State == StateBlocked {
		return -t.Vlag, nil
	}
	return t.Vruntime - s.rq.AvgVruntime(), nil
}

// Len counts live runnable tasks, the running one included.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.rq.Len()
	if s.rq.curr != nil {
		n++
	}
	return n
}

// TotalWeight returns the combined weight of the competition.
func (s *Scheduler) TotalWeight() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rq.TotalWeight()
}

// updateCurrent charges the running task for real time elapsed since its
// last accounting point, converts it to virtual time by weight, and refills
// the slice when the deadline has been consumed. Zero or negative deltas
// contribute nothing; callers hitting the same timestamp twice is normal.
func (s *Scheduler) updateCurrent(now time.Duration) {
	if now > s.now {
		s.now = now
	}
	curr := s.rq.curr
	if curr == nil {
		return
	}
	delta := now - curr.ExecStart
	if delta <= 0 {
		return
	}
	curr.ExecStart = now
	curr.SumExecRuntime += delta
	curr.Vruntime += int64(CalcDeltaFair(delta, curr.Weight))
	if curr.Vruntime >= curr.Deadline {
		s.refillSlice(curr)
	}
	s.rq.UpdateMinVruntime()
}

// refillSlice grants the running task a fresh slice and pushes its deadline
// out accordingly. The refill breaks the dispatch stamp, ending the
// run-to-parity protection for the consumed slice.
func (s *Scheduler) refillSlice(t *Task) {
	t.Slice = s.sliceFor(t.Weight, s.rq.TotalWeight())
	t.Deadline = t.Vruntime + int64(CalcDeltaFair(t.Slice, t.Weight))
}

// sliceFor sizes one slice: the task's weighted share of the target latency
// window, floored at the minimum granularity.
func (s *Scheduler) sliceFor(weight, total int64) time.Duration {
	slice := CalcDelta(s.cfg.TargetLatency(), weight, total)
	if min := s.cfg.MinGranularity(); slice < min {
		slice = min
	}
	return slice
}

// place positions a task joining the competition. It lands at the weighted
// average vruntime minus its carried lag, so a sleeper resumes with the
// credit it checkpointed and a fresh task starts even. The stored lag is
// scaled up by (load+w)/load first: post-placement the average itself moves,
// and without the scaling the task would realize less lag than it banked.
// Joining an empty queue discards lag, there is nobody to be behind.
func (s *Scheduler) place(t *Task) {
	V := s.rq.AvgVruntime()
	var lag int64
	if load := s.rq.TotalWeight(); load > 0 {
		lag = t.Vlag * (load + t.Weight) / load
	}
	t.Vruntime = V - lag
	t.Slice = s.sliceFor(t.Weight, s.rq.TotalWeight()+t.Weight)
	t.Deadline = t.Vruntime + int64(CalcDeltaFair(t.Slice, t.Weight))
}

// clampedLag measures how far behind the queue average the task is, bounded
// to the configured wakeup credit in the task's own virtual time. Positive
// means the task is owed time.
func (s *Scheduler) clampedLag(t *Task) int64 {
	lag := s.rq.AvgVruntime() - t.Vruntime
	limit := int64(CalcDeltaFair(s.cfg.WakeupCredit(), t.Weight))
	if lag > limit {
		lag = limit
	}
	if lag < -limit {
		lag = -limit
	}
	return lag
}

// emit publishes a status event without ever blocking the scheduler: a full
// channel drops the event and bumps a counter instead of stalling the tick
// path behind a slow consumer.
func (s *Scheduler) emit(ev StatusEvent) {
	select {
	case s.statusCh <- ev:
	default:
		s.droppedEvents++
		s.m.DroppedEvents.Inc()
		if !s.dropWarned {
			s.dropWarned = true
			s.log.Warn().Msg("status channel full, dropping events")
		}
	}
}

func (s *Scheduler) syncGauges() {
	n := s.rq.Len()
	if s.rq.curr != nil {
		n++
	}
	s.m.QueueDepth.Set(float64(n))
	s.m.TotalWeight.Set(float64(s.rq.TotalWeight()))
}
