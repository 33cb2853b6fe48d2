package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a synthetic measurement stream and detect anomalies in it",
	Long: `simulate produces normal values with occasional injected spikes and drops.

Without --target it runs a local detector and prints anomalies to stdout.
With --target it POSTs every value to a running detector service instead.`,
	RunE: runSimulate,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVarP(&opts.count, "count", "n", 1000, "Number of values to generate (0 runs until interrupted)")
	flags.DurationVarP(&opts.interval, "interval", "i", 0, "Delay between values")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed (0 picks a time-based seed)")
	flags.IntVar(&opts.capacity, "capacity", 3600, "Detector history capacity")
	flags.IntVar(&opts.window, "window", 100, "Rolling window size")
	flags.Float64Var(&opts.threshold, "threshold", 3.0, "Anomaly threshold in standard deviations")
	flags.BoolVar(&opts.sample, "sample-stddev", false, "Use sample (n-1) standard deviation")
	flags.BoolVarP(&opts.all, "all", "a", false, "Print every verdict, not only anomalies")
	flags.StringVarP(&opts.target, "target", "t", "", "Base URL of a running detector service")
	flags.StringVarP(&opts.stream, "stream", "s", "default", "Stream name used with --target")
	flags.StringVar(&opts.apiKey, "api-key", "", "API key sent with --target requests")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
