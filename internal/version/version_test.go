package version

import (
	"strings"
	"testing"
)

func override(t *testing.T, version, commit, message, date string) {
	t.Helper()
	orig := [4]string{Version, GitCommit, GitMessage, BuildDate}
	Version, GitCommit, GitMessage, BuildDate = version, commit, message, date
	t.Cleanup(func() {
		Version, GitCommit, GitMessage, BuildDate = orig[0], orig[1], orig[2], orig[3]
	})
}

func TestColoredPlain(t *testing.T) {
	override(t, "1.2.3-rc1", "", "", "")
	if got := Colored(false); got != "1.2.3-rc1" {
		t.Fatalf("Colored(false) = %q", got)
	}
	got := Colored(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc1") {
		t.Fatalf("Colored(true) = %q", got)
	}
}

func TestColoredUnusualVersion(t *testing.T) {
	override(t, "dev", "", "", "")
	if got := Colored(true); got != "dev" {
		t.Fatalf("Colored = %q", got)
	}
}

func TestDescribe(t *testing.T) {
	override(t, "1.2.3", "abc123", "fix things", "2024-01-15T10:30:00Z")
	want := "rescomp 1.2.3\nmetadata schema: 1\ncommit: abc123 (fix things)\nbuilt: 2024-01-15T10:30:00Z\n"
	if got := Describe(false, 1); got != want {
		t.Fatalf("Describe = %q, want %q", got, want)
	}

	override(t, "1.2.3", "", "", "")
	if got := Describe(false, 2); got != "rescomp 1.2.3\nmetadata schema: 2\n" {
		t.Fatalf("Describe without build info = %q", got)
	}
}
