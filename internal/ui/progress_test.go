package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"rescomp/internal/buildpipeline"
)

func TestProgressModelTracksResources(t *testing.T) {
	m := NewProgressModel("build demo", []string{"Scripts/Shared", "Instances/Main"}, nil).(*progressModel)

	m.applyEvent(buildpipeline.Event{Resource: "Scripts/Shared", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusDone})
	if m.items[0].final {
		t.Fatal("a loaded resource is not finished")
	}
	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StagePrecompile, Status: buildpipeline.StatusWorking, Pass: 3, PassName: "CompileInstanceTypes"})
	m.applyEvent(buildpipeline.Event{Resource: "Instances/Main", Stage: buildpipeline.StagePrecompile, Status: buildpipeline.StatusWorking, Pass: 3})
	m.applyEvent(buildpipeline.Event{Resource: "Scripts/Shared", Stage: buildpipeline.StagePrecompile, Status: buildpipeline.StatusDone})
	m.applyEvent(buildpipeline.Event{Resource: "Unknown", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError})

	if m.items[1].status != "pass 3/7" {
		t.Fatalf("status = %q", m.items[1].status)
	}
	if got := m.percent(); got <= 0.5 || got >= 1 {
		t.Fatalf("percent = %v", got)
	}
	view := m.View()
	if !strings.Contains(view, "pass 3: CompileInstanceTypes") || !strings.Contains(view, "Instances/Main") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("short value changed: %q", got)
	}
	for _, in := range []string{"Instances/MainWindow", "日本語テキストのリソース"} {
		got := truncate(in, 10)
		if runewidth.StringWidth(got) > 10 || !strings.HasSuffix(got, "...") {
			t.Errorf("truncate(%q, 10) = %q", in, got)
		}
	}
}
