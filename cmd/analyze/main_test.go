package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/wricardo/parksim/game/engine"
)

const classicConfig = "../../configs/classic.json"

func TestParsePlacement(t *testing.T) {
	tests := []struct {
		input   string
		want    Placement
		wantErr bool
	}{
		{"food:3:4", Placement{Type: engine.Food, X: 3, Y: 4}, false},
		{"ferris_wheel:10:2@30", Placement{Type: engine.FerrisWheel, X: 10, Y: 2, At: 30}, false},
		{"Carousel: 1 : 2", Placement{Type: engine.Carousel, X: 1, Y: 2}, false},
		{"coaster:1:1", Placement{Type: "coaster", X: 1, Y: 1}, false},
		{"food:3", Placement{}, true},
		{"food:a:b", Placement{}, true},
		{"food:1:1@soon", Placement{}, true},
		{"food:1:1@-5", Placement{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlacement(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestAnalyzeRunsScheduledPlacements(t *testing.T) {
	report, err := Analyze(Options{
		ConfigPath: classicConfig,
		Seconds:    20,
		DT:         0.1,
		Seed:       3,
		Placements: []Placement{
			{Type: engine.Carousel, X: 14, Y: 14, At: 5},
			{Type: engine.Food, X: 5, Y: 5},
			{Type: engine.FerrisWheel, X: 5, Y: 5, At: 1},
			{Type: "coaster", X: 2, Y: 2},
			{Type: engine.Food, X: 2, Y: 2, At: 999},
		},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.Ticks != 200 {
		t.Errorf("Expected 200 ticks, got %d", report.Ticks)
	}
	if len(report.Timeline) != 3 {
		t.Errorf("Expected samples at 0, 10 and 20 seconds, got %+v", report.Timeline)
	}
	if report.Timeline[0].Funds != 9500 {
		t.Errorf("Expected the t=0 placement before the first sample, funds %v", report.Timeline[0].Funds)
	}

	if len(report.Placements) != 5 {
		t.Fatalf("Expected 5 placement outcomes, got %+v", report.Placements)
	}
	byKey := map[string]PlacementOutcome{}
	for _, p := range report.Placements {
		byKey[fmt.Sprintf("%s@%g", p.Type, p.At)] = p
	}
	checks := []struct {
		key     string
		success bool
		reason  string
	}{
		{"food@0", true, "ok"},
		{"coaster@0", false, "unknown attraction type"},
		{"ferris@1", false, "cell is out of bounds, occupied or reserved"},
		{"carousel@5", true, "ok"},
		{"food@999", false, "scheduled after the run ended"},
	}
	for _, c := range checks {
		got, ok := byKey[c.key]
		if !ok {
			t.Errorf("Missing outcome %s in %+v", c.key, report.Placements)
			continue
		}
		if got.Success != c.success || got.Reason != c.reason {
			t.Errorf("%s: expected success=%v reason=%q, got %+v", c.key, c.success, c.reason, got)
		}
	}

	if len(report.Facilities) != 2 {
		t.Errorf("Expected 2 attractions, got %+v", report.Facilities)
	}
	if report.Final.Stats.Spawned == 0 {
		t.Error("Expected visitors to arrive within 20 seconds")
	}
}

func TestAnalyzeRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero seconds", Options{ConfigPath: classicConfig, Seconds: 0, DT: 0.1}},
		{"zero dt", Options{ConfigPath: classicConfig, Seconds: 10, DT: 0}},
		{"missing config", Options{ConfigPath: "nope.json", Seconds: 10, DT: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Analyze(tt.opts); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestAnalyzeClampsLargeDT(t *testing.T) {
	report, err := Analyze(Options{ConfigPath: classicConfig, Seconds: 5, DT: 2, Seed: 1})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Ticks != 20 {
		t.Errorf("Expected dt clamped to 0.25 giving 20 ticks, got %d", report.Ticks)
	}
}

func TestAnalyzeIsDeterministicForSeed(t *testing.T) {
	run := func() *Report {
		r, err := Analyze(Options{ConfigPath: classicConfig, Seconds: 30, DT: 0.1, Seed: 42,
			Placements: []Placement{{Type: engine.Food, X: 8, Y: 10}, {Type: engine.Carousel, X: 12, Y: 10}}})
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		return r
	}
	a, b := run(), run()
	if a.Final.Funds != b.Final.Funds || a.Final.Stats != b.Final.Stats || a.Final.Satisfaction != b.Final.Satisfaction {
		t.Errorf("Expected identical runs, got %+v vs %+v", a.Final.Stats, b.Final.Stats)
	}
}

func TestWriteText(t *testing.T) {
	report, err := Analyze(Options{ConfigPath: classicConfig, Seconds: 10, DT: 0.1, Seed: 9,
		Placements: []Placement{{Type: engine.Food, X: 3, Y: 3}, {Type: engine.Food, X: 3, Y: 3}}})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	WriteText(&buf, report)
	out := buf.String()
	for _, want := range []string{"=== Classic Park", "Placements:", "FAILED: cell is out of bounds", "Timeline:", "Final state:", "Attractions:", "Map:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCommandJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	cmd := newCommand(&buf)
	err := cmd.Run(context.Background(), []string{"analyze",
		"--config", classicConfig, "--seconds", "5", "--seed", "2",
		"--place", "food:4:4", "--place", "carousel:6:6@2", "--json"})
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if report.Ticks != 50 || len(report.Placements) != 2 || report.Config != "Classic Park" {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestCommandRejectsBadPlacement(t *testing.T) {
	var buf bytes.Buffer
	err := newCommand(&buf).Run(context.Background(), []string{"analyze", "--config", classicConfig, "--place", "food"})
	if err == nil {
		t.Error("Expected malformed --place to fail")
	}
}
