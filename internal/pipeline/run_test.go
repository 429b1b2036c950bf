package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"concretize/internal/cache"
	"concretize/internal/meta"
	"concretize/internal/observ"
	"concretize/internal/testkit"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) stageStatus(stage Stage, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.File == "" && ev.Stage == stage && ev.Status == status {
			return true
		}
	}
	return false
}

func saveFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "App.bin")
	if err := meta.SaveFile(path, testkit.Repo().Module); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestRunWritesModuleAndReport(t *testing.T) {
	dir := t.TempDir()
	disk, err := cache.Open("concretize", filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	rec := &recorder{}
	req := &Request{
		Target:    "Gen",
		Output:    filepath.Join(dir, "out", "Gen.bin"),
		Paths:     []string{saveFixture(t, dir)},
		Seeds:     []string{"App.Repo`1"},
		ReportDir: filepath.Join(dir, "Logs"),
		Cache:     disk,
		Progress:  rec,
		Timer:     observ.NewTimer(),
	}
	res, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Resolved.Types) != 1 || res.Resolved.Types[0].FullName() != "App.Repo`1<System.Int32>" {
		t.Fatalf("resolved = %v", res.Resolved.Types)
	}
	emitted, err := meta.LoadFile(req.Output)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if err := testkit.CheckModuleInvariants(emitted); err != nil {
		t.Fatalf("output invariants: %v", err)
	}
	if _, err := os.Stat(res.ReportPath); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	for _, stage := range Stages {
		if !res.Timings.Has(stage) {
			t.Fatalf("no timing for %s", stage)
		}
		if !rec.stageStatus(stage, StatusDone) {
			t.Fatalf("no done event for %s", stage)
		}
	}
	if got := len(req.Timer.Report().Phases); got != len(Stages) {
		t.Fatalf("timer phases = %d, want %d", got, len(Stages))
	}
	if res.CacheHits != 0 || res.CacheMisses != 1 {
		t.Fatalf("first run cache hits=%d misses=%d", res.CacheHits, res.CacheMisses)
	}

	again, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.CacheHits != 1 {
		t.Fatalf("second run must hit the cache, hits=%d", again.CacheHits)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "Gen.bin")
	res, err := Run(context.Background(), &Request{
		Target:    "Gen",
		Output:    out,
		Paths:     []string{saveFixture(t, dir)},
		Seeds:     []string{"App.Repo`1"},
		ReportDir: filepath.Join(dir, "Logs"),
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Resolved.Types) != 1 {
		t.Fatalf("resolved = %v", res.Resolved.Types)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "Logs")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote a report")
	}
}

func TestRunAbortsOnBadModule(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "Bad.bin")
	if err := os.WriteFile(bad, []byte("not a module"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "Gen.bin")
	rec := &recorder{}
	_, err := Run(context.Background(), &Request{
		Target:   "Gen",
		Output:   out,
		Paths:    []string{saveFixture(t, dir), bad},
		Seeds:    []string{"App.Repo`1"},
		Progress: rec,
	})
	if !errors.Is(err, meta.ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
	if !rec.stageStatus(StageLoad, StatusError) {
		t.Fatalf("no load error event")
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output written despite load failure")
	}
}

func TestRunRequiresSeeds(t *testing.T) {
	if _, err := Run(context.Background(), &Request{Target: "Gen"}); !errors.Is(err, ErrNoSeeds) {
		t.Fatalf("expected ErrNoSeeds, got %v", err)
	}
}
