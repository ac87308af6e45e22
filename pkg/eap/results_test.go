package eap

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Info
	}{
		{"full", "info depth 3 nodes 120000 score 12 time 3200", Info{Depth: 3, Nodes: 120000, Score: 12, Time: 3200}},
		{"partial", "info depth 1 time 50", Info{Depth: 1, Time: 50}},
		{"pv", "info depth 2 score 5 pv move 17 germany,poland", Info{Depth: 2, Score: 5, PV: "move 17 germany,poland"}},
		{"empty", "info", Info{}},
		{"dangling key", "info score", Info{}},
		{"string", "info string no position", Info{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseInfo(tt.line); got != tt.want {
				t.Errorf("parseInfo(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseEngineOption(t *testing.T) {
	got := parseEngineOption("option name Aggression type spin default 50 min 0 max 100")
	want := EngineOption{Name: "Aggression", Type: "spin", Default: "50", Min: "0", Max: "100"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGoParams(t *testing.T) {
	tests := []struct {
		name   string
		params GoParams
		want   string
	}{
		{"empty", GoParams{}, ""},
		{"movetime", GoParams{MoveTime: 5000}, "movetime 5000"},
		{"depth", GoParams{Depth: 3}, "depth 3"},
		{"both", GoParams{MoveTime: 5000, Depth: 3}, "movetime 5000 depth 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if back := parseGoParams(strings.Fields(tt.want)); back != tt.params {
				t.Errorf("parseGoParams(%q) = %+v", tt.want, back)
			}
		})
	}
}
