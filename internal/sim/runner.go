// internal/sim/runner.go

package sim

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fairq/internal/sched"
)

// Runner drives the scheduler with modeled workloads over discrete ticks.
// Time is virtual: one step per tick interval, so a run is deterministic and
// independent of wall-clock speed unless paced explicitly via RunRealtime.
type Runner struct {
	cfg    sched.Config
	sch    *sched.Scheduler
	sleepq *SleepQueue
	specs  []Workload
	states map[sched.TaskID]*taskRun
	order  []sched.TaskID
	live   int
	runID  string
	log    zerolog.Logger

	csvFile   *os.File
	csvWriter *csv.Writer
}

// taskRun is the runner-side state of one workload instance.
type taskRun struct {
	spec      Workload
	remaining time.Duration // burn left in the current cycle
	cycles    int
	ran       time.Duration
	done      bool
}

// Result summarizes a finished run.
type Result struct {
	RunID         string
	Covered       time.Duration // simulated time actually stepped
	Ticks         int64
	DroppedEvents uint64
	Tasks         []TaskResult
}

// TaskResult is the per-task outcome, in workload order.
type TaskResult struct {
	ID     sched.TaskID
	Name   string
	Nice   int
	Ran    time.Duration
	Share  float64 // fraction of covered time
	Cycles int
	Done   bool
}

// New creates a runner for the given workload mix.
func New(cfg sched.Config, workloads []Workload, logger zerolog.Logger, m *sched.Metrics) *Runner {
	runID := uuid.NewString()
	log := logger.With().Str("component", "sim").Str("run_id", runID).Logger()
	return &Runner{
		cfg:    cfg,
		sch:    sched.New(cfg, logger, m),
		sleepq: NewSleepQueue(),
		specs:  workloads,
		states: make(map[sched.TaskID]*taskRun),
		runID:  runID,
		log:    log,
	}
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (r *Runner) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"now_ms", "event", "task_id", "vruntime_ms", "deadline_ms", "ran_ms"})
	w.Flush()
	r.csvFile = f
	r.csvWriter = w
	return nil
}

// Run steps the simulation as fast as the host allows and returns the
// summary. Identical workloads and config produce identical results.
func (r *Runner) Run(duration time.Duration) (*Result, error) {
	return r.run(context.Background(), duration, nil)
}

// RunRealtime is Run paced by a wall-clock ticker, one simulated tick per
// real tick interval, until the duration is covered or the context ends.
func (r *Runner) RunRealtime(ctx context.Context, duration time.Duration) (*Result, error) {
	clock := sched.NewTickClock(256)
	clock.Start(r.cfg.TickInterval())
	defer clock.Stop()
	return r.run(ctx, duration, clock.Ch)
}

func (r *Runner) run(ctx context.Context, duration time.Duration, pace <-chan struct{}) (*Result, error) {
	tick := r.cfg.TickInterval()
	r.setup()

	r.log.Info().
		Dur("duration", duration).
		Int("workloads", len(r.specs)).
		Bool("realtime", pace != nil).
		Msg("simulation started")

	var covered time.Duration
	for now := tick; now <= duration; now += tick {
		if pace != nil {
			select {
			case <-ctx.Done():
				r.finish(covered)
				return r.result(covered), ctx.Err()
			case <-pace:
			}
		} else if ctx.Err() != nil {
			r.finish(covered)
			return r.result(covered), ctx.Err()
		}
		r.step(now)
		covered = now
		if r.live == 0 {
			break
		}
	}

	r.finish(covered)
	return r.result(covered), nil
}

// setup registers every workload as a task at t=0 and dispatches the first
// one.
func (r *Runner) setup() {
	for i, spec := range r.specs {
		id := sched.TaskID(i + 1)
		if _, err := r.sch.CreateTask(0, id, spec.Nice); err != nil {
			r.log.Error().Err(err).Str("workload", spec.Name).Msg("create failed, workload skipped")
			continue
		}
		r.states[id] = &taskRun{spec: spec, remaining: spec.Burn}
		r.order = append(r.order, id)
		r.live++
	}
	r.sch.PickNext(0)
	r.drainEvents()
}

// step advances the simulation to now: due sleepers wake, the tick charges
// the running task, the modeled workload consumes its burn, and the CPU is
// handed over when the scheduler asks for it.
func (r *Runner) step(now time.Duration) {
	resched := false
	for _, id := range r.sleepq.PopDue(now) {
		preempt, err := r.sch.Wake(now, id)
		if err != nil {
			r.log.Error().Err(err).Uint64("task", uint64(id)).Msg("wake failed")
			continue
		}
		resched = resched || preempt
	}

	if r.sch.Tick(now) {
		resched = true
	}

	if curr := r.sch.Current(); curr != nil {
		st := r.states[curr.ID]
		st.remaining -= r.cfg.TickInterval()
		if st.remaining <= 0 {
			st.cycles++
			switch {
			case st.spec.Cycles > 0 && st.cycles >= st.spec.Cycles:
				if ran, err := r.sch.SumExecRuntime(curr.ID); err == nil {
					st.ran = ran
				}
				st.done = true
				r.live--
				if err := r.sch.Terminate(now, curr.ID); err != nil {
					r.log.Error().Err(err).Uint64("task", uint64(curr.ID)).Msg("terminate failed")
				}
				resched = true
			case st.spec.Sleep > 0:
				if err := r.sch.Block(now, curr.ID); err != nil {
					r.log.Error().Err(err).Uint64("task", uint64(curr.ID)).Msg("block failed")
				} else {
					r.sleepq.Push(curr.ID, now+st.spec.Sleep)
				}
				st.remaining += st.spec.Burn
				resched = true
			default:
				// Cycle done but nothing to wait on: yield the rest of the
				// slice and start the next cycle.
				if err := r.sch.Yield(now, curr.ID); err != nil {
					r.log.Error().Err(err).Uint64("task", uint64(curr.ID)).Msg("yield failed")
				}
				st.remaining += st.spec.Burn
				resched = true
			}
		}
	} else {
		resched = true
	}

	if resched {
		r.sch.PickNext(now)
	}
	r.drainEvents()
}

// finish snapshots accounting for tasks still alive and flushes outputs.
func (r *Runner) finish(covered time.Duration) {
	for _, id := range r.order {
		st := r.states[id]
		if st.done {
			continue
		}
		if ran, err := r.sch.SumExecRuntime(id); err == nil {
			st.ran = ran
		}
	}
	r.drainEvents()
	if r.csvFile != nil {
		r.csvWriter.Flush()
		r.csvFile.Close()
		r.csvFile = nil
		r.csvWriter = nil
	}
	r.log.Info().
		Dur("covered", covered).
		Uint64("dropped_events", r.sch.DroppedEvents()).
		Msg("simulation finished")
}

func (r *Runner) result(covered time.Duration) *Result {
	res := &Result{
		RunID:         r.runID,
		Covered:       covered,
		DroppedEvents: r.sch.DroppedEvents(),
	}
	if tick := r.cfg.TickInterval(); tick > 0 {
		res.Ticks = int64(covered / tick)
	}
	for _, id := range r.order {
		st := r.states[id]
		tr := TaskResult{
			ID:     id,
			Name:   st.spec.Name,
			Nice:   st.spec.Nice,
			Ran:    st.ran,
			Cycles: st.cycles,
			Done:   st.done,
		}
		if covered > 0 {
			tr.Share = float64(st.ran) / float64(covered)
		}
		res.Tasks = append(res.Tasks, tr)
	}
	return res
}

// drainEvents pulls everything currently buffered on the status channel.
// Tick events are skipped for the brevity of output.
func (r *Runner) drainEvents() {
	for {
		select {
		case ev := <-r.sch.StatusChannel():
			r.handleEvent(ev)
		default:
			return
		}
	}
}

func (r *Runner) handleEvent(ev sched.StatusEvent) {
	if ev.Kind == sched.StatusTick {
		return
	}

	r.log.Debug().
		Dur("now", ev.Now).
		Str("event", ev.Kind.String()).
		Uint64("task", uint64(ev.TaskID)).
		Int64("vruntime", ev.Vruntime).
		Dur("ran", ev.Ran).
		Msg("scheduler event")

	// CSV output
	if r.csvWriter != nil {
		rec := []string{
			fmt.Sprintf("%.3f", float64(ev.Now)/float64(time.Millisecond)),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.TaskID), 10),
			fmt.Sprintf("%.4f", float64(ev.Vruntime)/float64(time.Millisecond)),
			fmt.Sprintf("%.4f", float64(ev.Deadline)/float64(time.Millisecond)),
			fmt.Sprintf("%.3f", float64(ev.Ran)/float64(time.Millisecond)),
		}
		r.csvWriter.Write(rec)
		r.csvWriter.Flush()
	}
}
