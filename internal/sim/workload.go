// internal/sim/workload.go

package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Workload describes one simulated task: how much CPU it burns per cycle,
// how long it sleeps between cycles, and how many cycles it runs. A zero
// Sleep makes the task yield between cycles instead of blocking; zero Cycles
// means it keeps going until the run ends.
type Workload struct {
	Name   string
	Nice   int
	Burn   time.Duration
	Sleep  time.Duration
	Cycles int
}

// ParseWorkload reads the CLI form "name:nice:burn:sleep:cycles", e.g.
// "build:0:80ms:0:5" or "editor:-5:2ms:50ms:0".
func ParseWorkload(s string) (Workload, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 {
		return Workload{}, fmt.Errorf("workload %q: want name:nice:burn:sleep:cycles", s)
	}
	w := Workload{Name: parts[0]}
	if w.Name == "" {
		return Workload{}, fmt.Errorf("workload %q: empty name", s)
	}
	nice, err := strconv.Atoi(parts[1])
	if err != nil {
		return Workload{}, fmt.Errorf("workload %q: bad niceness: %w", s, err)
	}
	w.Nice = nice
	if w.Burn, err = time.ParseDuration(parts[2]); err != nil {
		return Workload{}, fmt.Errorf("workload %q: bad burn: %w", s, err)
	}
	if w.Burn <= 0 {
		return Workload{}, fmt.Errorf("workload %q: burn must be positive", s)
	}
	if w.Sleep, err = time.ParseDuration(parts[3]); err != nil {
		return Workload{}, fmt.Errorf("workload %q: bad sleep: %w", s, err)
	}
	if w.Sleep < 0 {
		return Workload{}, fmt.Errorf("workload %q: sleep cannot be negative", s)
	}
	if w.Cycles, err = strconv.Atoi(parts[4]); err != nil {
		return Workload{}, fmt.Errorf("workload %q: bad cycles: %w", s, err)
	}
	if w.Cycles < 0 {
		return Workload{}, fmt.Errorf("workload %q: cycles cannot be negative", s)
	}
	return w, nil
}

// DefaultWorkloads is the demo mix: a CPU hog, a polite batch job, an
// interactive task that mostly sleeps, and a short-lived burst.
func DefaultWorkloads() []Workload {
	return []Workload{
		{Name: "hog", Nice: 0, Burn: time.Second, Sleep: 0, Cycles: 0},
		{Name: "batch", Nice: 5, Burn: 20 * time.Millisecond, Sleep: 0, Cycles: 0},
		{Name: "editor", Nice: -5, Burn: 2 * time.Millisecond, Sleep: 30 * time.Millisecond, Cycles: 0},
		{Name: "burst", Nice: 0, Burn: 40 * time.Millisecond, Sleep: 0, Cycles: 1},
	}
}
