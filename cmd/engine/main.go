// Command engine serves a built-in strategy over the external engine
// protocol on stdin and stdout, so it can stand in for a search engine.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/bot"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

func main() {
	strategyName := flag.String("strategy", "easy", "strategy to serve (easy, random)")
	mapFile := flag.String("map", "", "theater map YAML (default: embedded map)")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "seed for the random strategy")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var g campaign.Graph = campaign.DefaultMap()
	if *mapFile != "" {
		data, err := os.ReadFile(*mapFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read map file")
		}
		m, err := campaign.LoadMap(data)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid map file")
		}
		g = m
	}
	if *strategyName == "external" {
		log.Fatal().Msg("The engine cannot serve the external strategy")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := bot.EngineServer(bot.StrategyFor(*strategyName, *seed), g)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Engine stopped")
	}
}
