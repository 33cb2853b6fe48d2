package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replay [input]",
	Short: "Run the anomaly detector over a recorded series",
	Long: `replay reads one value per record from a CSV or newline-separated file
(stdin when input is omitted or "-"), classifies every value and writes the
verdicts as CSV. A summary of the series is printed to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.column, "column", "c", "", "Header name of the value column")
	flags.StringVarP(&opts.output, "output", "o", "-", "Verdict CSV output path (- for stdout)")
	flags.IntVar(&opts.capacity, "capacity", 3600, "Detector history capacity")
	flags.IntVar(&opts.window, "window", 100, "Rolling window size")
	flags.Float64Var(&opts.threshold, "threshold", 3.0, "Anomaly threshold in standard deviations")
	flags.BoolVar(&opts.sample, "sample-stddev", false, "Use sample (n-1) standard deviation")
	flags.BoolVar(&opts.anomaliesOnly, "anomalies-only", false, "Write only anomalous verdicts")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the summary")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
