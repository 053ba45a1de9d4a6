package typeinfo

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rescomp/internal/script"
)

func TestBuiltinInheritance(t *testing.T) {
	r := NewRegistry()
	ev, ok := r.Event("Window", "VisibleChanged")
	if !ok {
		t.Fatal("Window should inherit VisibleChanged from Control")
	}
	if diff := cmp.Diff([]string{"object", "bool"}, ev.Params); diff != "" {
		t.Fatal(diff)
	}
	if p, ok := r.Prop("Button", "Text"); !ok || p.Type != script.TypeString {
		t.Fatalf("Button.Text = %+v, %v", p, ok)
	}
	if _, ok := r.Event("Label", "Clicked"); ok {
		t.Fatal("Label has no Clicked event")
	}
}

func TestRegisterAndClear(t *testing.T) {
	r := NewRegistry()
	r.Import(&script.Metadata{Classes: []script.TypeDesc{{Name: "Theme", Script: true}}})
	r.Register(&script.Assembly{Classes: []script.TypeDesc{{Name: "MainWindow", Base: "Window", Script: true}}})

	if _, ok := r.LookupType("MainWindow"); !ok {
		t.Fatal("registered class not found")
	}
	if _, ok := r.Event("MainWindow", "Closing"); !ok {
		t.Fatal("registered class should see base events")
	}
	r.LookupType("MainWindow")
	if hits, _ := r.Stats(); hits == 0 {
		t.Fatal("second lookup should hit the cache")
	}

	r.Clear()
	if _, ok := r.LookupType("MainWindow"); ok {
		t.Fatal("Clear should drop loaded classes")
	}
	if _, ok := r.LookupType("Theme"); !ok {
		t.Fatal("imports survive Clear")
	}
	if _, ok := r.LookupType("Window"); !ok {
		t.Fatal("builtins survive Clear")
	}
}

func TestConcurrentLookup(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.LookupType("Window")
			r.Register(&script.Assembly{Classes: []script.TypeDesc{{Name: "X"}}})
		}()
	}
	wg.Wait()
	if _, ok := r.LookupType("X"); !ok {
		t.Fatal("X should be registered")
	}
}
