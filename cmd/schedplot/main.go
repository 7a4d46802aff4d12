//go:build !tinygo

// Command schedplot runs a scenario headless for a fixed number of ticks,
// prints per-task run statistics and draws the schedule as a PNG timeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"kestrel/app"
	"kestrel/hal"
	"kestrel/kestrel/trace"
	"kestrel/kestrel/workload"
)

const (
	defaultTicks = 2000
	defaultOut   = "schedule.png"
)

func main() {
	var (
		scenario string
		out      string
		ticks    uint64
		width    int
		from, to uint64
	)
	flag.StringVar(&scenario, "scenario", "", "Scenario file (default: built-in).")
	flag.StringVar(&out, "out", defaultOut, "PNG file to write; empty skips the timeline.")
	flag.Uint64Var(&ticks, "ticks", defaultTicks, "Ticks to run.")
	flag.IntVar(&width, "width", 1000, "Timeline width in pixels.")
	flag.Uint64Var(&from, "from", 0, "First tick drawn.")
	flag.Uint64Var(&to, "to", 0, "Last tick drawn (0 = end of run).")
	flag.Parse()

	if err := run(scenario, out, ticks, trace.TimelineOptions{Width: width, From: from, To: to}); err != nil {
		fmt.Fprintln(os.Stderr, "schedplot:", err)
		os.Exit(1)
	}
}

func run(scenario, out string, ticks uint64, opt trace.TimelineOptions) error {
	if ticks == 0 {
		return fmt.Errorf("-ticks must be positive")
	}
	cfg := app.Config{}
	if scenario != "" {
		f, err := os.Open(scenario)
		if err != nil {
			return err
		}
		cfg.Scenario, err = workload.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", scenario, err)
		}
	}

	rec := trace.NewRecorder(0)
	cfg.Trace = rec
	err := hal.RunHeadless(context.Background(), func(h hal.HAL) func() error {
		return app.NewWithConfig(h, cfg)
	}, hal.HostConfig{Hz: 200, Ticks: ticks, Log: io.Discard})
	if err != nil {
		return err
	}
	rec.Finish(ticks)

	printStats(os.Stdout, rec)
	if out == "" {
		return nil
	}
	if err := rec.SaveTimeline(out, opt); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func printStats(w io.Writer, rec *trace.Recorder) {
	calls, switches, dropped := rec.Counters()
	fmt.Fprintf(w, "scheduler runs %d, switches %d, dropped slices %d\n\n", calls, switches, dropped)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "task\tslices\tticks\tshare\tmean\tstddev\tmin\tmedian\tmax\t")
	for _, st := range rec.Stats() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%.1f\t%.1f\t%.0f\t%.1f\t%.0f\t\n",
			st.Name, st.Slices, st.Ticks, st.Share*100, st.Mean, st.StdDev, st.Min, st.Median, st.Max)
	}
	tw.Flush()
}
