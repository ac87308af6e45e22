package bot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/freeeve/iron-alliance/api/internal/repository/sqlite"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// Archived converts a finished arena game into an archive record. The
// strategy label describes the matchup, for example "easy" or
// "germany=random,*=easy".
func (r *ArenaResult) Archived(strategy string) (sqlite.ArchivedGame, error) {
	final, err := json.Marshal(r.Final)
	if err != nil {
		return sqlite.ArchivedGame{}, fmt.Errorf("encode final state of %s: %w", r.GameID, err)
	}
	notation := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		notation[i] = campaign.FormatAction(a)
	}
	return sqlite.ArchivedGame{
		ID:         r.GameID,
		Seed:       r.Seed,
		Strategy:   strategy,
		Winner:     string(r.Winner),
		Turns:      r.Turns,
		Actions:    notation,
		FinalState: final,
	}, nil
}

// ArchivedActions parses an archived action list back into actions, for
// replaying a stored game.
func ArchivedActions(g sqlite.ArchivedGame) ([]campaign.Action, error) {
	out := make([]campaign.Action, 0, len(g.Actions))
	for i, n := range g.Actions {
		a, err := campaign.ParseAction(n)
		if err != nil {
			return nil, fmt.Errorf("game %s action %d: %w", g.ID, i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// MatchupLabel describes per-faction strategies, listing the factions that
// differ from the default first.
func MatchupLabel(def Strategy, overrides map[campaign.Faction]Strategy) string {
	var parts []string
	for _, f := range campaign.AllFactions() {
		if s, ok := overrides[f]; ok && s.Name() != def.Name() {
			parts = append(parts, string(f)+"="+s.Name())
		}
	}
	if len(parts) == 0 {
		return def.Name()
	}
	return strings.Join(append(parts, "*="+def.Name()), ",")
}
