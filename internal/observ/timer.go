package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Phase is one timed section of a build: a pass, a bucket rebuild, manifest loading.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
	done  bool
}

// Timer collects phase durations. Safe for concurrent use since bucket
// rebuilds may be timed from parallel resolver steps.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 16)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// BeginPass starts the phase for a pass index.
func (t *Timer) BeginPass(pass int) int {
	return t.Begin(fmt.Sprintf("pass %d", pass))
}

// End finishes a phase by its index. Ending twice keeps the first duration.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) || t.phases[idx].done {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
	p.done = true
}

// Summary returns a human-readable table of all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-28s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-28s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns phases in start order. Total counts top-level passes only
// when any exist, since bucket rebuilds are nested inside them.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total, passTotal time.Duration
	havePass := false
	for i, phase := range t.phases {
		total += phase.Dur
		if strings.HasPrefix(phase.Name, "pass ") {
			passTotal += phase.Dur
			havePass = true
		}
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	if havePass {
		total = passTotal
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Slowest returns up to n phases sorted by duration, longest first.
func (t *Timer) Slowest(n int) []PhaseReport {
	phases := t.Report().Phases
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].DurationMS > phases[j].DurationMS })
	if n >= 0 && len(phases) > n {
		phases = phases[:n]
	}
	return phases
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
