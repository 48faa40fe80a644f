package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fairq/internal/sched"
	"fairq/internal/sim"
)

var (
	runDuration   time.Duration
	csvPath       string
	realtime      bool
	metricsAddr   string
	workloadFlags []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload mix against the scheduler",
	Long: `Run simulates a set of workloads competing for one CPU. Each workload is
"name:nice:burn:sleep:cycles": it burns CPU for burn per cycle, sleeps for
sleep between cycles (0 yields instead), and stops after cycles cycles
(0 runs until the end). Without --workload a demo mix is used.`,
	Example: `  fairsim run -d 2s
  fairsim run -w spin:0:1s:0:0 -w nap:5:3ms:40ms:0 --csv trace.csv
  fairsim run --realtime -d 10s --metrics-addr :9091`,
	RunE: runSim,
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 2*time.Second, "simulated time to cover")
	runCmd.Flags().StringVar(&csvPath, "csv", "", "write scheduling events to this CSV file")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace the simulation on the wall clock")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9091")
	runCmd.Flags().StringArrayVarP(&workloadFlags, "workload", "w", nil, "workload spec name:nice:burn:sleep:cycles (repeatable)")
}

func runSim(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := sched.Load(cfgPath)

	workloads := sim.DefaultWorkloads()
	if len(workloadFlags) > 0 {
		workloads = workloads[:0]
		for _, spec := range workloadFlags {
			w, err := sim.ParseWorkload(spec)
			if err != nil {
				return err
			}
			workloads = append(workloads, w)
		}
	}

	reg := prometheus.NewRegistry()
	m := sched.NewMetrics(reg)
	if metricsAddr != "" {
		go serveMetrics(logger, reg, metricsAddr)
	}

	runner := sim.New(cfg, workloads, logger, m)
	if csvPath != "" {
		if err := runner.EnableCSVLogging(csvPath); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}

	var (
		result *sim.Result
		err    error
	)
	if realtime {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		result, err = runner.RunRealtime(ctx, runDuration)
	} else {
		result, err = runner.Run(runDuration)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

func serveMetrics(logger zerolog.Logger, reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func printResult(out io.Writer, res *sim.Result) {
	fmt.Fprintf(out, "run %s: covered %s in %d ticks", res.RunID, res.Covered, res.Ticks)
	if res.DroppedEvents > 0 {
		fmt.Fprintf(out, " (%d events dropped)", res.DroppedEvents)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNICE\tRAN\tSHARE\tCYCLES\tSTATE")
	for _, t := range res.Tasks {
		state := "live"
		if t.Done {
			state = "done"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%.1f%%\t%d\t%s\n",
			t.ID, t.Name, t.Nice, t.Ran, t.Share*100, t.Cycles, state)
	}
	w.Flush()
}
