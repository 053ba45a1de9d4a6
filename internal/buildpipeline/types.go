package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads and decodes resource files.
	StageLoad Stage = "load"
	// StageImport reads metadata of earlier sessions.
	StageImport Stage = "import"
	// StagePrecompile runs the resolver passes.
	StagePrecompile Stage = "precompile"
	// StageWrite stores the produced metadata.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
	// StatusCached indicates the result came from the build cache.
	StatusCached Status = "cached"
)

// Event reports progress for a resource (or for the overall pipeline when
// Resource is empty). Pass and PassName are set during StagePrecompile.
type Event struct {
	Resource string
	Stage    Stage
	Status   Status
	Pass     int
	PassName string
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. OnEvent may be called from several
// goroutines when the build runs with more than one job.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
