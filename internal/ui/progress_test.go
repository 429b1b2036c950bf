package ui

import (
	"strings"
	"testing"

	"concretize/internal/pipeline"
)

func TestApplyEventTracksModules(t *testing.T) {
	files := []string{"build/A.bin", "build/B.bin"}
	m := NewProgressModel("concretize Gen", files, nil).(*progressModel)

	m.applyEvent(pipeline.Event{File: "build/A.bin", Stage: pipeline.StageIndex, Status: pipeline.StatusWorking})
	m.applyEvent(pipeline.Event{File: "build/B.bin", Stage: pipeline.StageHarvest, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "unknown.bin", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})
	m.applyEvent(pipeline.Event{Stage: pipeline.StageResolve, Status: pipeline.StatusWorking})

	if m.items[0].status != "indexing" || m.items[1].status != "done" {
		t.Fatalf("statuses = %q, %q", m.items[0].status, m.items[1].status)
	}
	if m.stageLabel != "resolving" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}
	if m.finished() != 1 {
		t.Fatalf("finished = %d, want 1", m.finished())
	}
	if view := m.View(); !strings.Contains(view, "1/2 modules") || !strings.Contains(view, "resolving") {
		t.Fatalf("view missing progress:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("Stackray.Renderer.bin", 10); len(got) > 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
