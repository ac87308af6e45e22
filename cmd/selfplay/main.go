// Command selfplay runs bot-vs-bot games on the local engine and archives
// them in a SQLite file for later replay.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/internal/repository/sqlite"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		stratCfg string
		numGames int
		workers  int
		dbPath   string
		maxTurns int
		seed     uint64
		engine   string
		replay   string
		verify   bool
		dryRun   bool
		jsonOut  bool
	)

	flag.StringVar(&stratCfg, "p", "*=easy", "Faction strategies (e.g. germany=random,*=easy)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.StringVar(&dbPath, "db", "selfplay.db", "SQLite archive file")
	flag.IntVar(&maxTurns, "max-turns", 15, "Turn cap before a game is stopped without a winner")
	flag.Uint64Var(&seed, "seed", 1, "Dice seed of the first game; game i uses seed+i")
	flag.StringVar(&engine, "engine", "", "Engine binary for the \"external\" strategy")
	flag.StringVar(&replay, "replay", "", "Replay an archived game by id and check its final state")
	flag.BoolVar(&verify, "verify", false, "Replay each game after it finishes")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip archive writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.Parse()

	bot.ExternalEnginePath = engine

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var archive *sqlite.Archive
	if !dryRun || replay != "" {
		a, err := sqlite.Open(dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", dbPath).Msg("Archive open failed")
		}
		defer a.Close()
		archive = a
	}

	graph := campaign.DefaultMap()
	if replay != "" {
		if err := replayArchived(ctx, archive, graph, replay); err != nil {
			log.Fatal().Err(err).Msg("Replay failed")
		}
		fmt.Printf("%s: replay matches\n", replay)
		return
	}

	def, overrides, err := parseStrategies(stratCfg, seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad strategy config")
	}
	label := bot.MatchupLabel(def, overrides)

	results := make([]*bot.ArenaResult, numGames)
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		errCount int
	)
	sem := make(chan struct{}, max(workers, 1))

	for i := range numGames {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := runOne(ctx, graph, seed+uint64(i), def, overrides, maxTurns, verify)
			if err == nil && archive != nil {
				err = archiveResult(ctx, archive, result, label)
			}
			if err != nil {
				log.Error().Err(err).Int("game", i+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}
			mu.Lock()
			results[i] = result
			mu.Unlock()
			log.Info().Int("game", i+1).Str("winner", string(result.Winner)).Int("turns", result.Turns).Int("actions", len(result.Actions)).Msg("Game completed")
		}()
	}
	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
		return
	}
	printSummary(results, label, maxTurns, errCount)
	if archive != nil {
		printArchiveTotals(ctx, archive, dbPath)
	}
}

// parseStrategies reads "faction=strategy" pairs separated by commas. The
// "*" entry sets the default, which is easy when absent.
func parseStrategies(cfg string, seed uint64) (bot.Strategy, map[campaign.Faction]bot.Strategy, error) {
	def := bot.Strategy(bot.EasyStrategy{})
	overrides := make(map[campaign.Faction]bot.Strategy)
	for _, part := range strings.Split(cfg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, strat, ok := strings.Cut(part, "=")
		if !ok || strat == "" {
			return nil, nil, fmt.Errorf("expected faction=strategy, got %q", part)
		}
		if !knownStrategy(strat) {
			return nil, nil, fmt.Errorf("unknown strategy %q", strat)
		}
		if name == "*" {
			def = bot.StrategyFor(strat, seed)
			continue
		}
		f := campaign.Faction(name)
		if !f.Valid() {
			return nil, nil, fmt.Errorf("unknown faction %q", name)
		}
		overrides[f] = bot.StrategyFor(strat, seed+uint64(f.Index())+1)
	}
	return def, overrides, nil
}

func knownStrategy(name string) bool {
	switch name {
	case "easy", "random", "external":
		return true
	}
	return false
}

func runOne(ctx context.Context, g campaign.Graph, seed uint64, def bot.Strategy, overrides map[campaign.Faction]bot.Strategy, maxTurns int, verify bool) (*bot.ArenaResult, error) {
	strategies := make(map[campaign.Faction]bot.Strategy, campaign.FactionCount)
	for _, f := range campaign.AllFactions() {
		strategies[f] = def
		if s, ok := overrides[f]; ok {
			strategies[f] = s
		}
	}
	result, err := bot.RunGame(ctx, bot.ArenaConfig{
		Graph:      g,
		Seed:       seed,
		Strategies: strategies,
		MaxTurns:   maxTurns,
	})
	if err != nil {
		return nil, err
	}
	if verify {
		if err := bot.VerifyReplay(g, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func archiveResult(ctx context.Context, a *sqlite.Archive, r *bot.ArenaResult, label string) error {
	rec, err := r.Archived(label)
	if err != nil {
		return err
	}
	return a.Record(ctx, rec)
}

// replayArchived replays a stored game from its seed and action list and
// compares the result with the stored final state.
func replayArchived(ctx context.Context, a *sqlite.Archive, g campaign.Graph, id string) error {
	rec, err := a.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("game %s is not in the archive", id)
	}
	actions, err := bot.ArchivedActions(*rec)
	if err != nil {
		return err
	}
	e, err := campaign.Replay(g, rec.Seed, nil, actions)
	if err != nil {
		return err
	}
	got, err := json.Marshal(e.State())
	if err != nil {
		return err
	}
	if !bytes.Equal(got, rec.FinalState) {
		return fmt.Errorf("game %s: replayed state differs from the archive", id)
	}
	return nil
}

func printSummary(results []*bot.ArenaResult, label string, maxTurns, errCount int) {
	type stats struct {
		territories int
		games       int
	}
	wins := make(map[campaign.Team]int)
	byFaction := make(map[campaign.Faction]*stats)
	for _, f := range campaign.AllFactions() {
		byFaction[f] = &stats{}
	}

	completed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		wins[r.Winner]++
		for _, f := range campaign.AllFactions() {
			s := byFaction[f]
			s.games++
			s.territories += r.Territories[f]
		}
	}

	fmt.Printf("\nResults for %s (%d games, max %d turns):\n", label, completed, maxTurns)
	if errCount > 0 {
		fmt.Printf("  (%d games failed)\n", errCount)
	}
	fmt.Printf("  axis %d, allies %d, unfinished %d\n", wins[campaign.Axis], wins[campaign.Allies], wins[""])
	for _, f := range campaign.AllFactions() {
		s := byFaction[f]
		avg := 0.0
		if s.games > 0 {
			avg = float64(s.territories) / float64(s.games)
		}
		fmt.Printf("  %-15s (%s):  avg territories %.1f\n", f, f.Team(), avg)
	}
}

func printArchiveTotals(ctx context.Context, a *sqlite.Archive, path string) {
	counts, err := a.WinCounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read archive totals")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("\nArchive %s now holds %d games (axis %d, allies %d, unfinished %d)\n",
		path, total, counts[string(campaign.Axis)], counts[string(campaign.Allies)], counts[""])
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	type game struct {
		ID          string                   `json:"id"`
		Seed        uint64                   `json:"seed"`
		Winner      campaign.Team            `json:"winner"`
		Turns       int                      `json:"turns"`
		Actions     int                      `json:"actions"`
		Territories map[campaign.Faction]int `json:"territories"`
	}
	out := struct {
		Total   int    `json:"total"`
		Errors  int    `json:"errors"`
		Results []game `json:"results"`
	}{Total: total, Errors: errCount}
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Results = append(out.Results, game{
			ID:          r.GameID,
			Seed:        r.Seed,
			Winner:      r.Winner,
			Turns:       r.Turns,
			Actions:     len(r.Actions),
			Territories: r.Territories,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
