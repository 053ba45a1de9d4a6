package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerReportOrder(t *testing.T) {
	tm := NewTimer()
	p0 := tm.BeginPass(0)
	rb := tm.Begin("rebuild Workflow/Shared")
	time.Sleep(time.Millisecond)
	tm.End(rb, "2 modules")
	tm.End(p0, "")
	tm.End(p0, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "pass 0" || r.Phases[1].Note != "2 modules" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if r.Phases[0].Note != "" {
		t.Fatalf("second End must not overwrite: %q", r.Phases[0].Note)
	}
	if r.TotalMS != r.Phases[0].DurationMS {
		t.Fatalf("total should count passes only: %v vs %v", r.TotalMS, r.Phases[0].DurationMS)
	}
	if !strings.Contains(tm.Summary(), "rebuild Workflow/Shared") {
		t.Fatalf("summary misses phase:\n%s", tm.Summary())
	}
}

func TestTimerConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("step"), "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 8 {
		t.Fatalf("expected 8 phases, got %d", got)
	}
	if got := len(tm.Slowest(3)); got != 3 {
		t.Fatalf("Slowest(3) returned %d", got)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer should report nothing")
	}
}
