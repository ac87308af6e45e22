package campaign

import "slices"

// InverseKind says how an applied action can be reversed.
type InverseKind string

const (
	// InverseSimple reverses the action by applying a complementary action.
	InverseSimple InverseKind = "simple"
	// InverseSnapshot reverses the action by restoring captured state.
	InverseSnapshot InverseKind = "snapshot"
	// InverseIrreversible marks an action that cannot be undone.
	InverseIrreversible InverseKind = "irreversible"
)

// Inverse is the recorded means of undoing one applied action.
type Inverse struct {
	Kind     InverseKind `json:"kind"`
	Action   *Action     `json:"action,omitempty"`
	Snapshot *Snapshot   `json:"snapshot,omitempty"`
}

// Snapshot captures the phase sub-state and the region stacks an action
// may touch, together with the embarked units, the mobilization pool and
// the id counter.
type Snapshot struct {
	PhaseState PhaseState                `json:"phaseState"`
	Regions    map[RegionID]*RegionState `json:"regions"`
	Embarked   map[UnitID]Unit           `json:"embarked,omitempty"`
	Purchased  []Purchase                `json:"purchased,omitempty"`
	NextUnitID UnitID                    `json:"nextUnitId"`
}

// Record is an applied action and its inverse. Draws counts the dice the
// action consumed.
type Record struct {
	Action  Action  `json:"action"`
	Inverse Inverse `json:"inverse"`
	Draws   uint64  `json:"draws,omitempty"`
}

func (r Record) clone() Record {
	c := Record{Action: r.Action.clone(), Inverse: Inverse{Kind: r.Inverse.Kind}, Draws: r.Draws}
	if r.Inverse.Action != nil {
		a := r.Inverse.Action.clone()
		c.Inverse.Action = &a
	}
	if r.Inverse.Snapshot != nil {
		c.Inverse.Snapshot = r.Inverse.Snapshot.clone()
	}
	return c
}

func simpleInverse(a Action) Inverse { return Inverse{Kind: InverseSimple, Action: &a} }

func irreversible() Inverse { return Inverse{Kind: InverseIrreversible} }

// takeSnapshot records the state that an action touching the given
// regions could change.
func takeSnapshot(gs *GameState, regions ...RegionID) *Snapshot {
	s := &Snapshot{
		PhaseState: gs.PhaseState.clone(),
		Regions:    make(map[RegionID]*RegionState, len(regions)),
		Purchased:  slices.Clone(gs.Purchased),
		NextUnitID: gs.NextUnitID,
	}
	for _, id := range regions {
		if rs := gs.Regions[id]; rs != nil {
			s.Regions[id] = rs.clone()
		}
	}
	if gs.Embarked != nil {
		s.Embarked = make(map[UnitID]Unit, len(gs.Embarked))
		for id, u := range gs.Embarked {
			s.Embarked[id] = u.clone()
		}
	}
	return s
}

func (s *Snapshot) restore(gs *GameState) {
	gs.PhaseState = s.PhaseState.clone()
	for id, rs := range s.Regions {
		gs.Regions[id] = rs.clone()
	}
	gs.Embarked = nil
	if s.Embarked != nil {
		gs.Embarked = make(map[UnitID]Unit, len(s.Embarked))
		for id, u := range s.Embarked {
			gs.Embarked[id] = u.clone()
		}
	}
	gs.Purchased = slices.Clone(s.Purchased)
	gs.NextUnitID = s.NextUnitID
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		PhaseState: s.PhaseState.clone(),
		Regions:    make(map[RegionID]*RegionState, len(s.Regions)),
		Purchased:  slices.Clone(s.Purchased),
		NextUnitID: s.NextUnitID,
	}
	for id, rs := range s.Regions {
		c.Regions[id] = rs.clone()
	}
	if s.Embarked != nil {
		c.Embarked = make(map[UnitID]Unit, len(s.Embarked))
		for id, u := range s.Embarked {
			c.Embarked[id] = u.clone()
		}
	}
	return c
}

// CanUndo reports whether the most recent action can be reversed.
func (gs *GameState) CanUndo() bool {
	return len(gs.Log) > 0 && gs.Log[len(gs.Log)-1].Inverse.Kind != InverseIrreversible
}

func validateUndo(gs *GameState) error {
	if len(gs.Log) == 0 {
		return reject(KindCannotUndo, "No actions to undo")
	}
	if gs.Log[len(gs.Log)-1].Inverse.Kind == InverseIrreversible {
		return reject(KindCannotUndo, "Last action cannot be undone")
	}
	return nil
}

// lastCheckpoint returns the log index at which the current phase began.
func (gs *GameState) lastCheckpoint() int {
	if len(gs.Checkpoints) == 0 {
		return 0
	}
	return gs.Checkpoints[len(gs.Checkpoints)-1]
}
