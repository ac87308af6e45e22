package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// ArenaConfig configures a single bot-vs-bot game.
type ArenaConfig struct {
	GameID     string                        // "" = new uuid
	Graph      campaign.Graph                // nil = default map
	Seed       uint64                        // dice seed
	Strategies map[campaign.Faction]Strategy // missing factions play easy
	MaxTurns   int                           // turn cap, 0 = 15

	// MaxActionsPerTurn bounds one faction's turn; 0 = 2000.
	MaxActionsPerTurn int
}

// ArenaResult describes a finished arena game.
type ArenaResult struct {
	GameID  string
	Seed    uint64
	Winner  campaign.Team // "" when the turn cap was hit
	Turns   int
	Actions []campaign.Action
	Final   *campaign.GameState

	// Territories is the number of land regions each faction ends with.
	Territories map[campaign.Faction]int
}

// RunGame plays a full game locally, one faction turn at a time, until a
// team wins or the turn cap is passed.
func RunGame(ctx context.Context, cfg ArenaConfig) (*ArenaResult, error) {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 15
	}
	if cfg.MaxActionsPerTurn == 0 {
		cfg.MaxActionsPerTurn = 2000
	}
	if cfg.Graph == nil {
		cfg.Graph = campaign.DefaultMap()
	}
	if cfg.GameID == "" {
		cfg.GameID = uuid.NewString()
	}

	e := campaign.New(cfg.Graph, cfg.Seed)
	result := &ArenaResult{GameID: cfg.GameID, Seed: cfg.Seed}

	for e.State().Winner == "" && e.State().Turn <= cfg.MaxTurns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gs := e.State()
		s := cfg.Strategies[gs.Current]
		if s == nil {
			s = EasyStrategy{}
		}
		steps, err := PlayTurn(e, s, cfg.MaxActionsPerTurn)
		for _, st := range steps {
			result.Actions = append(result.Actions, st.Action)
		}
		if err != nil {
			return nil, fmt.Errorf("turn %d %s: %w", gs.Turn, gs.Current, err)
		}
	}

	final := e.State()
	result.Winner = final.Winner
	result.Turns = final.Turn
	result.Final = final
	result.Territories = make(map[campaign.Faction]int)
	for _, f := range campaign.AllFactions() {
		result.Territories[f] = len(final.TerritoriesOwned(cfg.Graph, f))
	}

	ev := log.Info().Str("gameId", cfg.GameID).Int("turns", result.Turns).Int("actions", len(result.Actions))
	if result.Winner != "" {
		ev.Str("winner", string(result.Winner)).Msg("Arena game won")
	} else {
		ev.Msg("Arena game reached the turn cap")
	}
	return result, nil
}

// VerifyReplay replays a finished arena game from its seed and reports
// whether it reaches the same final state.
func VerifyReplay(g campaign.Graph, r *ArenaResult) error {
	again, err := campaign.Replay(g, r.Seed, nil, r.Actions)
	if err != nil {
		return fmt.Errorf("replay %s: %w", r.GameID, err)
	}
	want, err := json.Marshal(r.Final)
	if err != nil {
		return err
	}
	got, err := json.Marshal(again.State())
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("replay %s: final state differs", r.GameID)
	}
	return nil
}
