package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rescomp/internal/prof"
	"rescomp/internal/trace"
)

// tracing is the tracer of the running command; closed by finishTracing.
var tracing struct {
	tracer trace.Tracer
	ring   *trace.RingTracer
	format trace.Format
	prof   *prof.Session
	closed bool
}

// startTracing inspects trace-related flags and attaches a tracer to the
// command context.
func startTracing(cmd *cobra.Command, _ []string) error {
	root := cmd.Root()
	tracing.tracer, tracing.ring, tracing.prof, tracing.closed = nil, nil, nil, false
	if err := startProfiling(root); err != nil {
		return err
	}

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	// --trace без уровня включает фазы
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	tracing.tracer = tracer
	tracing.format = format
	switch t := tracer.(type) {
	case *trace.RingTracer:
		tracing.ring = t
	case *trace.MultiTracer:
		tracing.ring = t.Ring()
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	return nil
}

func stopTracing(cmd *cobra.Command, _ []string) error {
	finishTracing(cmd, false)
	return nil
}

// finishTracing flushes the tracer. A failed command dumps the ring buffer
// to stderr.
func finishTracing(cmd *cobra.Command, failed bool) {
	if tracing.closed {
		return
	}
	tracing.closed = true
	if err := tracing.prof.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
	}
	if tracing.tracer == nil {
		return
	}
	if failed && tracing.ring != nil {
		format := tracing.format
		if format == trace.FormatAuto {
			format = trace.FormatText
		}
		if err := tracing.ring.Dump(os.Stderr, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}
	if err := tracing.tracer.Flush(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
	}
	if err := tracing.tracer.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
}

func startProfiling(root *cobra.Command) error {
	var cfg prof.Config
	var err error
	if cfg.CPU, err = root.PersistentFlags().GetString("cpuprofile"); err != nil {
		return err
	}
	if cfg.Heap, err = root.PersistentFlags().GetString("memprofile"); err != nil {
		return err
	}
	if cfg.Trace, err = root.PersistentFlags().GetString("runtime-trace"); err != nil {
		return err
	}
	if !cfg.Enabled() {
		return nil
	}
	tracing.prof, err = prof.Start(cfg)
	return err
}
