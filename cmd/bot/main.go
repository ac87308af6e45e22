// Command bot plays a full game against a running server: one bot user per
// seat, all talking to the public HTTP and websocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

func main() {
	url := flag.String("url", "http://localhost:8009", "server base URL (the server must run with DEV_MODE=true)")
	strategyName := flag.String("strategy", "easy", "bot strategy (easy, random, external)")
	engine := flag.String("engine", "", "engine binary for the external strategy")
	seatsCfg := flag.String("seats", "teams", "seating: teams, solo, or factions split by '/' and ',' (germany,italy/japan)")
	turnTimeout := flag.Duration("turn-timeout", 10*time.Minute, "turn timeout for the game")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "seed for the random strategy")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	seats, err := parseSeats(*seatsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad seating")
	}
	bot.ExternalEnginePath = *engine
	strategy := bot.StrategyFor(*strategyName, *seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	winner, err := bot.NewOrchestrator(*url, strategy, *turnTimeout, seats).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Bot orchestrator failed")
	}
	if winner == "" {
		log.Info().Msg("Bot game ended without a winner")
		return
	}
	log.Info().Str("winner", string(winner)).Msg("Bot game completed successfully")
}

// parseSeats turns the -seats flag into one faction list per bot.
func parseSeats(cfg string) ([][]campaign.Faction, error) {
	switch cfg {
	case "", "teams":
		return bot.TeamSeats(), nil
	case "solo":
		var seats [][]campaign.Faction
		for _, f := range campaign.AllFactions() {
			seats = append(seats, []campaign.Faction{f})
		}
		return seats, nil
	}

	seen := make(map[campaign.Faction]bool)
	var seats [][]campaign.Faction
	for _, group := range strings.Split(cfg, "/") {
		var seat []campaign.Faction
		for _, name := range strings.Split(group, ",") {
			f := campaign.Faction(strings.TrimSpace(name))
			if !f.Valid() {
				return nil, fmt.Errorf("unknown faction %q", name)
			}
			if seen[f] {
				return nil, fmt.Errorf("faction %s seated twice", f)
			}
			seen[f] = true
			seat = append(seat, f)
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
