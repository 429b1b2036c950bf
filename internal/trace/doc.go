// Package trace records what a concretize run is doing and how long each
// part takes.
//
// Tracing is enabled from the command line:
//
//	concretize resolve --trace=run.ndjson --trace-level=detail
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event as it happens (file or stderr)
//   - RingTracer: keeps the last N events in memory, dumped when a run fails
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Every event has a scope. The level decides which scopes are kept:
//
//   - LevelPhase: ScopeRun and ScopePhase (load, index, harvest, resolve, emit)
//   - LevelDetail: adds ScopeModule (per-module scans)
//   - LevelDebug: adds ScopeSeed (per-seed call chain walks)
//
// The tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "harvest", 0)
//	defer span.End("")
package trace
