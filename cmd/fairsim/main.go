package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "fairsim",
	Short:   "Fair scheduler simulator",
	Long:    "fairsim runs modeled workloads against a weighted-fair, earliest-eligible-deadline scheduler and reports how the CPU was shared.",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yml", "path to the scheduler config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(weightsCmd)
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
