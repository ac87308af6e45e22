package main

import (
	"context"
	"testing"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/internal/repository/sqlite"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

const lineYAML = `
name: line
victory:
  axis:
    europe: 1
    pacific: 0
regions:
  - id: west
    kind: land
    theater: europe
    ipc: 10
    owner: germany
    capital: germany
    facilities: [major_ic]
    adjacent: [east]
  - id: east
    kind: land
    theater: europe
    ipc: 2
    owner: france
    victory_city: Paris
    adjacent: [west]
setup:
  - region: west
    owner: germany
    units: ["2 infantry"]
  - region: east
    owner: france
    units: ["3 infantry"]
`

func TestParseStrategies(t *testing.T) {
	tests := []struct {
		cfg       string
		wantDef   string
		overrides map[campaign.Faction]string
		wantErr   bool
	}{
		{cfg: "", wantDef: "easy"},
		{cfg: "*=random", wantDef: "random"},
		{cfg: "germany=random, *=easy", wantDef: "easy", overrides: map[campaign.Faction]string{campaign.Germany: "random"}},
		{cfg: "japan=random,italy=easy", wantDef: "easy", overrides: map[campaign.Faction]string{campaign.Japan: "random", campaign.Italy: "easy"}},
		{cfg: "*=external", wantDef: "easy"}, // no engine configured
		{cfg: "atlantis=easy", wantErr: true},
		{cfg: "germany=genius", wantErr: true},
		{cfg: "germany", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg, func(t *testing.T) {
			def, overrides, err := parseStrategies(tt.cfg, 1)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if def.Name() != tt.wantDef {
				t.Errorf("default = %s, want %s", def.Name(), tt.wantDef)
			}
			if len(overrides) != len(tt.overrides) {
				t.Fatalf("overrides = %v, want %v", overrides, tt.overrides)
			}
			for f, name := range tt.overrides {
				if overrides[f] == nil || overrides[f].Name() != name {
					t.Errorf("%s = %v, want %s", f, overrides[f], name)
				}
			}
		})
	}
}

func TestArchiveAndReplay(t *testing.T) {
	g, err := campaign.LoadMap([]byte(lineYAML))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	archive, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer archive.Close()
	ctx := context.Background()

	def, overrides, err := parseStrategies("germany=random,*=easy", 4)
	if err != nil {
		t.Fatal(err)
	}
	result, err := runOne(ctx, g, 4, def, overrides, 2, true)
	if err != nil {
		t.Fatalf("runOne: %v", err)
	}
	if err := archiveResult(ctx, archive, result, bot.MatchupLabel(def, overrides)); err != nil {
		t.Fatalf("archiveResult: %v", err)
	}

	if err := replayArchived(ctx, archive, g, result.GameID); err != nil {
		t.Errorf("replay: %v", err)
	}
	if err := replayArchived(ctx, archive, g, "missing"); err == nil {
		t.Error("expected an error for a missing game")
	}

	stored, err := archive.Get(ctx, result.GameID)
	if err != nil || stored == nil {
		t.Fatalf("Get: %v, %v", stored, err)
	}
	if stored.Strategy != "germany=random,*=easy" {
		t.Errorf("strategy label = %q", stored.Strategy)
	}
}
