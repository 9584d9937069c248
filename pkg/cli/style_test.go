package cli

import (
	"strings"
	"testing"
)

func TestReport(t *testing.T) {
	r := Report{
		Title: "meetrec doctor",
		Checks: []Check{
			{Name: "ffmpeg", Status: CheckOK, Detail: "ffmpeg version 7.1"},
			{Name: "index", Status: CheckWarn, Detail: "in-memory"},
		},
	}
	if r.Failed() {
		t.Fatal("Failed() = true without failing checks")
	}

	out := r.Render(NewStyles(DefaultTheme))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	for i, want := range []string{"meetrec doctor", "ffmpeg", "index"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
	if !strings.Contains(lines[1], "✓") || !strings.Contains(lines[2], "!") {
		t.Errorf("status marks missing:\n%s", out)
	}

	r.Checks = append(r.Checks, Check{Name: "storage", Status: CheckFail})
	if !r.Failed() {
		t.Error("Failed() = false with a failing check")
	}
	if !strings.Contains(r.Render(NewStyles(DefaultTheme)), "✗") {
		t.Error("failing check not marked")
	}
}
