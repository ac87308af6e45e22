package campaign

// EventKind names a narrative event emitted by an applied action.
type EventKind string

const (
	EventPhaseChanged       EventKind = "phase_changed"
	EventTurnChanged        EventKind = "turn_changed"
	EventWarDeclared        EventKind = "war_declared"
	EventBattleStarted      EventKind = "battle_started"
	EventDiceRolled         EventKind = "dice_rolled"
	EventUnitsLost          EventKind = "units_lost"
	EventBattleEnded        EventKind = "battle_ended"
	EventTerritoryCaptured  EventKind = "territory_captured"
	EventCapitalCaptured    EventKind = "capital_captured"
	EventTerritoryLiberated EventKind = "territory_liberated"
	EventFacilityDamaged    EventKind = "facility_damaged"
	EventConvoyDisrupted    EventKind = "convoy_disrupted"
	EventObjectiveAchieved  EventKind = "objective_achieved"
	EventVictoryAchieved    EventKind = "victory_achieved"
	EventUnitsPurchased     EventKind = "units_purchased"
	EventUnitsPlaced        EventKind = "units_placed"
	EventUnitsForfeited     EventKind = "units_forfeited"
	EventIncomeCollected    EventKind = "income_collected"
)

// Event describes something that happened. Kind selects which of the
// payload fields are meaningful.
type Event struct {
	Kind        EventKind `json:"kind"`
	From        Phase     `json:"from,omitempty"`
	To          Phase     `json:"to,omitempty"`
	Faction     Faction   `json:"faction,omitempty"`
	Target      Faction   `json:"target,omitempty"`
	Turn        int       `json:"turn,omitempty"`
	Region      RegionID  `json:"region,omitempty"`
	AttackerWon bool      `json:"attackerWon,omitempty"`
	Team        Team      `json:"team,omitempty"`
	UnitType    UnitType  `json:"unitType,omitempty"`
	Count       int       `json:"count,omitempty"`
	Amount      int       `json:"amount,omitempty"`
	Units       []UnitID  `json:"units,omitempty"`
	Rolls       []int     `json:"rolls,omitempty"`
	Note        string    `json:"note,omitempty"`
	// Battle is the resolved battle on BattleEnded, with its final
	// survivors, losses and withdrawals.
	Battle *Battle `json:"battle,omitempty"`
}
