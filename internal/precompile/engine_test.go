package precompile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/diag"
	"rescomp/internal/resource"
	"rescomp/internal/source"
)

type recorder struct {
	name   string
	passes map[int]Granularity
	fail   int    // pass whose per-resource hook fails, -1 for none
	failOn string // resource that fails; empty means every resource

	mu    *sync.Mutex
	trace *[]string
}

func (r recorder) Name() string                { return r.name }
func (r recorder) ResourceKind() resource.Kind { return resource.KindScript }
func (r recorder) Support(pass int) Granularity {
	return r.passes[pass]
}

func (r recorder) PerResource(ctx context.Context, st *Step, res *resource.Resource) error {
	if st.Pass == r.fail && (r.failOn == "" || res.Name == r.failOn) {
		return errors.New("boom")
	}
	st.Report(diag.SevInfo, diag.PreInfo, source.Span{}, "%s pass %d", r.name, st.Pass)
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.trace = append(*r.trace, fmt.Sprintf("%d %s %s", st.Pass, r.name, res.Name))
	return nil
}

func (r recorder) PerPass(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.trace = append(*r.trace, fmt.Sprintf("%d %s session", s.Pass(), r.name))
	return nil
}

func scripts(names ...string) []*resource.Resource {
	out := make([]*resource.Resource, len(names))
	for i, n := range names {
		out[i] = &resource.Resource{Name: n, Kind: resource.KindScript}
	}
	return out
}

func TestRunPassOrdering(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	a := recorder{name: "a", passes: map[int]Granularity{0: PerResource, 2: PerResource}, fail: -1, mu: &mu, trace: &trace}
	b := recorder{name: "b", passes: map[int]Granularity{1: PerResource, 2: PerPass}, fail: -1, mu: &mu, trace: &trace}

	s := NewSession(Options{})
	if err := Run(context.Background(), s, scripts("r1", "r2"), []Participant{a, b}, 2); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"0 a r1", "0 a r2",
		"1 b r1", "1 b r2",
		"2 a r1", "2 a r2",
		"2 b session",
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSkipsOtherKinds(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	a := recorder{name: "a", passes: map[int]Granularity{0: PerResource}, fail: -1, mu: &mu, trace: &trace}
	res := append(scripts("r1"), &resource.Resource{Name: "i1", Kind: resource.KindInstance})

	if err := Run(context.Background(), NewSession(Options{}), res, []Participant{a}, 0); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"0 a r1"}, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRunParallelCommitsInResourceOrder(t *testing.T) {
	names := make([]string, 32)
	for i := range names {
		names[i] = fmt.Sprintf("r%02d", i)
	}
	collect := func(jobs int) []string {
		var mu sync.Mutex
		var trace []string
		a := recorder{name: "a", passes: map[int]Granularity{0: PerResource}, fail: -1, mu: &mu, trace: &trace}
		s := NewSession(Options{Jobs: jobs})
		if err := Run(context.Background(), s, scripts(names...), []Participant{a}, 0); err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, d := range s.Diags.Items() {
			got = append(got, d.Resource)
		}
		return got
	}
	if diff := cmp.Diff(collect(1), collect(8)); diff != "" {
		t.Fatalf("parallel diagnostics differ (-sequential +parallel):\n%s", diff)
	}
	if got := collect(8); len(got) != len(names) || got[0] != "r00" || got[31] != "r31" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRunStopsOnHookError(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	a := recorder{name: "a", passes: map[int]Granularity{0: PerResource, 1: PerResource}, fail: 1, mu: &mu, trace: &trace}

	err := Run(context.Background(), NewSession(Options{}), scripts("r1"), []Participant{a}, 3)
	if !errors.Is(err, ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if diff := cmp.Diff([]string{"0 a r1"}, trace); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRunKeepsDiagnosticsOfFinishedSteps(t *testing.T) {
	for _, tt := range []struct {
		jobs int
		want []string
	}{
		{jobs: 1, want: []string{"r1"}},
		// all hooks of the pass are started, only r2 fails
		{jobs: 4, want: []string{"r1", "r3"}},
	} {
		var mu sync.Mutex
		var trace []string
		a := recorder{name: "a", passes: map[int]Granularity{0: PerResource}, fail: 0, failOn: "r2", mu: &mu, trace: &trace}
		s := NewSession(Options{Jobs: tt.jobs})

		err := Run(context.Background(), s, scripts("r1", "r2", "r3"), []Participant{a}, 0)
		if !errors.Is(err, ErrStructural) {
			t.Fatalf("jobs=%d: expected structural error, got %v", tt.jobs, err)
		}
		var got []string
		for _, d := range s.Diags.Items() {
			got = append(got, d.Resource)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("jobs=%d: diagnostics mismatch (-want +got):\n%s", tt.jobs, diff)
		}
	}
}

func TestRunReportsPassEvents(t *testing.T) {
	var events []PassEvent
	s := NewSession(Options{Observe: func(ev PassEvent) { events = append(events, ev) }})
	if err := Run(context.Background(), s, nil, NewManager().Participants(), 1); err != nil {
		t.Fatal(err)
	}
	want := []PassEvent{
		{Pass: 0, Name: PassName(0)},
		{Pass: 0, Name: PassName(0), Done: true},
		{Pass: 1, Name: PassName(1)},
		{Pass: 1, Name: "SharedScript"},
		{Pass: 1, Name: PassName(1), Done: true},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestClassNames(t *testing.T) {
	c := NewClassNames()
	if c.Insert("", "r0", source.Span{}) {
		t.Fatal("empty name must not be inserted")
	}
	c.Insert("Main", "r1", source.Span{Start: 1})
	c.Insert("Other", "r2", source.Span{Start: 2})
	// decomposed "é" normalizes to the composed form
	c.Insert("Caf\u00e9", "r3", source.Span{Start: 3})
	c.Insert("Cafe\u0301", "r4", source.Span{Start: 4})
	c.Insert("Main", "r5", source.Span{Start: 5})

	if c.Len() != 5 || !c.Contains("Other") || c.Contains("") {
		t.Fatalf("unexpected registry state: %v", c.Entries())
	}
	want := []Duplicate{
		{Name: "Main", Entries: []ClassEntry{
			{Name: "Main", Resource: "r1", Pos: source.Span{Start: 1}},
			{Name: "Main", Resource: "r5", Pos: source.Span{Start: 5}},
		}},
		{Name: "Caf\u00e9", Entries: []ClassEntry{
			{Name: "Caf\u00e9", Resource: "r3", Pos: source.Span{Start: 3}},
			{Name: "Caf\u00e9", Resource: "r4", Pos: source.Span{Start: 4}},
		}},
	}
	if diff := cmp.Diff(want, c.Duplicates()); diff != "" {
		t.Fatalf("duplicates mismatch (-want +got):\n%s", diff)
	}
}
