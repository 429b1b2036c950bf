package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"concretize/internal/meta"
	"concretize/internal/resolve"
)

func TestWriteListsTypesAfterHeader(t *testing.T) {
	dir := t.TempDir()
	res := &resolve.Result{
		Types: []*meta.TypeRef{
			meta.Inst("App.Box`1", meta.Def("App.Foo")),
			meta.Inst("App.Box`1", meta.Def("App.Bar")),
		},
		Stats: resolve.Stats{Seeds: 1, DroppedGeneric: 2},
	}
	path, err := Write(dir, "Gen", "/out/Gen.bin", res, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasSuffix(path, "concretized_Gen_types.log") {
		t.Fatalf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), data)
	}
	if want := "Gen - 1.500s to inject 2 concrete types in module '/out/Gen.bin'"; lines[0] != want {
		t.Fatalf("header = %q, want %q", lines[0], want)
	}
	if lines[1] != "App.Box`1<App.Foo>" || lines[2] != "App.Box`1<App.Bar>" {
		t.Fatalf("types = %q", lines[1:3])
	}
	if !strings.Contains(lines[3], "dropped=2") {
		t.Fatalf("stats line = %q", lines[3])
	}
}
