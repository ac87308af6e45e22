//go:build integration

package bot

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// benchNumGames returns BENCH_GAMES env var as int, or the provided default.
func benchNumGames(defaultN int) int {
	if s := os.Getenv("BENCH_GAMES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultN
}

// benchVerbose returns true when BENCH_VERBOSE=1, enabling per-game logging.
func benchVerbose() bool {
	return os.Getenv("BENCH_VERBOSE") == "1"
}

// BenchmarkResult holds aggregate metrics from a series of arena games,
// seen from one team.
type BenchmarkResult struct {
	Matchup     string
	Team        campaign.Team
	NumGames    int
	Wins        int
	Capped      int
	Losses      int
	Territories []int // team territories at the end of each game
	GameLengths []int // actions per game
	Durations   []time.Duration
}

func (b *BenchmarkResult) WinRate() float64 {
	return float64(b.Wins) / float64(b.NumGames) * 100
}

func (b *BenchmarkResult) AvgTerritories() float64 { return mean(b.Territories) }

func (b *BenchmarkResult) AvgGameLength() float64 { return mean(b.GameLengths) }

// MedianDuration returns the median wall-clock time per game.
func (b *BenchmarkResult) MedianDuration() time.Duration {
	if len(b.Durations) == 0 {
		return 0
	}
	sorted := slices.Clone(b.Durations)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// runBenchmarkSuite plays numGames games where team uses s and everyone
// else plays easy.
func runBenchmarkSuite(t *testing.T, team campaign.Team, s func(seed uint64) Strategy, numGames, maxTurns int) *BenchmarkResult {
	t.Helper()

	result := &BenchmarkResult{Team: team, NumGames: numGames}
	for i := range numGames {
		seed := uint64(i + 1)
		strategies := make(map[campaign.Faction]Strategy)
		for _, f := range campaign.AllFactions() {
			if f.Team() == team {
				strategies[f] = s(seed)
			}
		}
		result.Matchup = MatchupLabel(EasyStrategy{}, strategies)

		start := time.Now()
		res, err := RunGame(context.Background(), ArenaConfig{Seed: seed, MaxTurns: maxTurns, Strategies: strategies})
		elapsed := time.Since(start)
		if err != nil {
			t.Fatalf("game %d failed: %v", i+1, err)
		}

		owned := 0
		for f, n := range res.Territories {
			if f.Team() == team {
				owned += n
			}
		}
		result.Durations = append(result.Durations, elapsed)
		result.GameLengths = append(result.GameLengths, len(res.Actions))
		result.Territories = append(result.Territories, owned)
		switch res.Winner {
		case team:
			result.Wins++
		case "":
			result.Capped++
		default:
			result.Losses++
		}

		if benchVerbose() {
			t.Logf("Game %d/%d: winner=%q turns=%d actions=%d territories=%d elapsed=%s",
				i+1, numGames, res.Winner, res.Turns, len(res.Actions), owned, elapsed.Round(time.Millisecond))
		}
	}
	return result
}

func logBenchmarkResults(t *testing.T, r *BenchmarkResult) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n=== BENCHMARK: %s as %s (%d games) ===\n", r.Matchup, r.Team, r.NumGames))
	sb.WriteString(fmt.Sprintf("Win rate:     %d/%d (%.0f%%)\n", r.Wins, r.NumGames, r.WinRate()))
	sb.WriteString(fmt.Sprintf("Turn cap:     %d/%d\n", r.Capped, r.NumGames))
	sb.WriteString(fmt.Sprintf("Loss rate:    %d/%d\n", r.Losses, r.NumGames))
	sb.WriteString(fmt.Sprintf("Avg land:     %.1f\n", r.AvgTerritories()))
	sb.WriteString(fmt.Sprintf("Avg actions:  %.1f\n", r.AvgGameLength()))
	sb.WriteString(fmt.Sprintf("Median Time:  %s\n", r.MedianDuration().Round(time.Millisecond)))
	t.Log(sb.String())
}

// TestBenchmark_EasyVsRandom compares the Axis played by random and by easy
// against easy Allies.
// Run with: go test -tags integration -run TestBenchmark_EasyVsRandom -v -count=1
func TestBenchmark_EasyVsRandom(t *testing.T) {
	n := benchNumGames(4)
	random := func(seed uint64) Strategy { return NewRandomStrategy(seed) }
	easy := func(uint64) Strategy { return EasyStrategy{} }

	randomAxis := runBenchmarkSuite(t, campaign.Axis, random, n, 6)
	easyAxis := runBenchmarkSuite(t, campaign.Axis, easy, n, 6)
	logBenchmarkResults(t, randomAxis)
	logBenchmarkResults(t, easyAxis)

	t.Logf("land held by the axis: easy %.1f, random %.1f", easyAxis.AvgTerritories(), randomAxis.AvgTerritories())
}

func BenchmarkRunGameDefaultMap(b *testing.B) {
	for i := range b.N {
		if _, err := RunGame(context.Background(), ArenaConfig{Seed: uint64(i + 1), MaxTurns: 2}); err != nil {
			b.Fatal(err)
		}
	}
}
