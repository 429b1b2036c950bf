package version

import (
	"strings"
	"testing"
)

func TestStringIncludesOptionalFields(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := String(); got != "concretize 1.2.3" {
		t.Fatalf("String() = %q", got)
	}
	GitCommit, BuildDate = "abc123", "2026-01-15"
	got := String()
	if !strings.Contains(got, "(abc123)") || !strings.HasSuffix(got, "built 2026-01-15") {
		t.Fatalf("String() = %q", got)
	}
}

func TestVersionHasDefault(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}
