package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DEV_MODE", "TURN_TIMEOUT", "ACTION_RATE", "ACTION_BURST", "MAP_FILE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8009" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DevMode {
		t.Error("DevMode on by default")
	}
	if cfg.TurnTimeout != 24*time.Hour {
		t.Errorf("TurnTimeout = %v", cfg.TurnTimeout)
	}
	if cfg.ActionRate != 10 || cfg.ActionBurst != 30 {
		t.Errorf("rate = %v/%d", cfg.ActionRate, cfg.ActionBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TURN_TIMEOUT", "90s")
	t.Setenv("ACTION_RATE", "2.5")
	t.Setenv("ACTION_BURST", "not-a-number")
	t.Setenv("MAP_FILE", "/tmp/map.yaml")
	cfg := Load()
	if cfg.Port != "9000" || !cfg.DevMode || cfg.MapFile != "/tmp/map.yaml" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TurnTimeout != 90*time.Second {
		t.Errorf("TurnTimeout = %v", cfg.TurnTimeout)
	}
	if cfg.ActionRate != 2.5 || cfg.ActionBurst != 30 {
		t.Errorf("rate = %v/%d", cfg.ActionRate, cfg.ActionBurst)
	}
}
