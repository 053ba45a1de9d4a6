package main

import (
	"fmt"
	"io"
	"time"

	"rescomp/internal/buildpipeline"
	"rescomp/internal/observ"
)

func printStageTimings(out io.Writer, timings buildpipeline.Timings, timer *observ.Timer) {
	for _, stage := range []buildpipeline.Stage{
		buildpipeline.StageLoad,
		buildpipeline.StageImport,
		buildpipeline.StagePrecompile,
		buildpipeline.StageWrite,
	} {
		if timings.Has(stage) {
			fmt.Fprintf(out, "%-10s %8.1f ms\n", stage, toMillis(timings.Duration(stage)))
		}
	}
	if timer == nil {
		return
	}
	slowest := timer.Slowest(3)
	if len(slowest) == 0 {
		return
	}
	fmt.Fprintln(out, "slowest phases:")
	for _, p := range slowest {
		fmt.Fprintf(out, "  %-28s %8.1f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  %s", p.Note)
		}
		fmt.Fprintln(out)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
