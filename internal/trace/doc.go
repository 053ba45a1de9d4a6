// Package trace records what the resource compiler is doing while it runs.
//
// Events are scoped to the driver, to a pass index, to a single resolver
// invocation or bucket rebuild, or to provenance work on individual nodes.
// Each event carries the pass index and the resource (or bucket path) it
// belongs to, so a stuck build can be narrowed down to one resource.
//
// Tracers:
//
//   - Nop: disabled tracing
//   - StreamTracer: writes every event as it arrives
//   - RingTracer: keeps the last N events, dumped on failure
//   - MultiTracer: fans out to several tracers
//
// Usage:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.BeginPass(t, trace.ScopePass, "pass", 3, "", trace.CurrentSpan(ctx))
//	defer span.End("")
package trace
