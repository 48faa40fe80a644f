package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fairq/internal/sched"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the niceness-to-weight table",
	Long:  "Weights shows the scheduling weight for every niceness level and the CPU share it buys relative to niceness 0.",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "NICE\tWEIGHT\tVS NICE 0\t")
		for nice := sched.MinNiceness; nice <= sched.MaxNiceness; nice++ {
			weight, err := sched.WeightOf(nice)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "%d\t%d\t%.3fx\t\n", nice, weight, float64(weight)/float64(sched.Nice0Load))
		}
		w.Flush()
	},
}
