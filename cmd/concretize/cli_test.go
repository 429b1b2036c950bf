package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"concretize/internal/observ"
	"concretize/internal/pipeline"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in   string
		want uiMode
		ok   bool
	}{
		{in: "", want: uiModeAuto, ok: true},
		{in: " ON ", want: uiModeOn, ok: true},
		{in: "off", want: uiModeOff, ok: true},
		{in: "sometimes"},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if tt.ok != (err == nil) || got != tt.want {
			t.Fatalf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit modes must win over terminal detection")
	}
}

func TestPrintStageTimingsGroupsStages(t *testing.T) {
	var timings pipeline.Timings
	timings.Set(pipeline.StageLoad, 2*time.Millisecond)
	timings.Set(pipeline.StageIndex, time.Millisecond)
	timings.Set(pipeline.StageHarvest, 3*time.Millisecond)
	timings.Set(pipeline.StageResolve, 5*time.Millisecond)

	var buf bytes.Buffer
	if err := printStageTimings(&buf, timings); err != nil {
		t.Fatalf("print: %v", err)
	}
	want := "loaded 2.0 ms\nscanned 4.0 ms\nresolved 5.0 ms\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintTimingsModes(t *testing.T) {
	timer := observ.NewTimer()
	timer.End(timer.Begin("load"), "3 modules")

	var buf bytes.Buffer
	if err := printTimings(&buf, "", pipeline.Timings{}, timer); err != nil || buf.Len() != 0 {
		t.Fatalf("empty mode printed %q (err %v)", buf.String(), err)
	}
	if err := printTimings(&buf, "detail", pipeline.Timings{}, timer); err != nil {
		t.Fatalf("detail: %v", err)
	}
	if !strings.Contains(buf.String(), "load") {
		t.Fatalf("detail output %q misses the phase", buf.String())
	}
	if err := printTimings(&buf, "bogus", pipeline.Timings{}, timer); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRenderVersionJSONStripsColor(t *testing.T) {
	info := versionInfo{Version: "\x1b[33;1m0\x1b[0m.3.0-dev", GitCommit: "abc123"}
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, info, versionOptions{format: "json", showHash: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Version != "0.3.0-dev" || payload.GitCommit != "abc123" || payload.BuildDate != "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
