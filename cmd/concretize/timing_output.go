package main

import (
	"fmt"
	"io"
	"time"

	"concretize/internal/observ"
	"concretize/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) error {
	if out == nil {
		return nil
	}
	if timings.Has(pipeline.StageLoad) {
		if _, err := fmt.Fprintf(out, "loaded %.1f ms\n", toMillis(timings.Duration(pipeline.StageLoad))); err != nil {
			return err
		}
	}
	if timings.Has(pipeline.StageIndex) || timings.Has(pipeline.StageHarvest) {
		scanned := timings.Sum(pipeline.StageIndex, pipeline.StageHarvest)
		if _, err := fmt.Fprintf(out, "scanned %.1f ms\n", toMillis(scanned)); err != nil {
			return err
		}
	}
	if timings.Has(pipeline.StageResolve) {
		if _, err := fmt.Fprintf(out, "resolved %.1f ms\n", toMillis(timings.Duration(pipeline.StageResolve))); err != nil {
			return err
		}
	}
	if timings.Has(pipeline.StageEmit) || timings.Has(pipeline.StageReport) {
		written := timings.Sum(pipeline.StageEmit, pipeline.StageReport)
		if _, err := fmt.Fprintf(out, "written %.1f ms\n", toMillis(written)); err != nil {
			return err
		}
	}
	return nil
}

// printTimings prints according to the --timings flag value.
func printTimings(out io.Writer, mode string, timings pipeline.Timings, timer *observ.Timer) error {
	switch mode {
	case "":
		return nil
	case "stages":
		return printStageTimings(out, timings)
	case "detail":
		_, err := io.WriteString(out, timer.Summary())
		return err
	default:
		return fmt.Errorf("invalid --timings value %q (expected stages|detail)", mode)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
