package campaign

import "testing"

func TestObjectiveConditions(t *testing.T) {
	m := skirmishMap(t)
	gs := NewGameState(m, 1)
	tests := []struct {
		when string
		want bool
	}{
		{`Controls("alpha")`, true},
		{`Controls("beta")`, false},
		{`Controls("nowhere")`, false},
		{`TeamControls("gamma")`, true},
		{`AtWar("france")`, true},
		{`AtWar("united_states")`, false},
		{`EnemyUnits("beta") == 1`, true},
		{`EnemyUnits("alpha") > 0`, false},
		{`Turn == 1 && !Controls("beta")`, true},
	}
	for _, tt := range tests {
		o := &Objective{ID: "t", Faction: Germany, When: tt.when}
		if err := o.compile(); err != nil {
			t.Fatalf("compile %q: %v", tt.when, err)
		}
		got, err := o.Achieved(gs)
		if err != nil {
			t.Fatalf("Achieved %q: %v", tt.when, err)
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.when, got, tt.want)
		}
	}
}

func TestObjectiveIncome(t *testing.T) {
	m := skirmishMap(t)
	gs := NewGameState(m, 1)
	if eu, pa, events := objectiveIncome(gs, m, Germany); eu != 0 || pa != 0 || len(events) != 0 {
		t.Fatalf("objective paid before beta was taken: %d %d %v", eu, pa, events)
	}
	gs.Regions["beta"].Owner = Germany
	eu, pa, events := objectiveIncome(gs, m, Germany)
	if eu != 5 || pa != 0 {
		t.Errorf("bonus = %d/%d, want 5/0", eu, pa)
	}
	if len(events) != 1 || events[0].Kind != EventObjectiveAchieved || events[0].Note != "hold_beta" {
		t.Errorf("events = %+v", events)
	}
	if eu, _, _ := objectiveIncome(gs, m, France); eu != 0 {
		t.Errorf("france earned %d from a german objective", eu)
	}
}

func TestUncompiledObjective(t *testing.T) {
	o := &Objective{ID: "raw", Faction: Germany, When: "true"}
	if _, err := o.Achieved(&GameState{}); err == nil {
		t.Error("uncompiled objective evaluated")
	}
}
