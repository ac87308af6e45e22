package eap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// Info is a single "info" line emitted by the engine during a search.
type Info struct {
	Depth int
	Nodes int
	Time  int
	Score int
	PV    string
}

// SearchResults holds the output of a go command: the info lines seen
// during the search and the chosen action.
type SearchResults struct {
	Notation string
	Action   campaign.Action
	Infos    []Info
}

// EngineID holds the identification received during the handshake.
type EngineID struct {
	Name            string
	Author          string
	ProtocolVersion int
}

// EngineOption describes a setting advertised by the engine.
type EngineOption struct {
	Name    string
	Type    string
	Default string
	Min     string
	Max     string
}

// GoParams bounds a search.
type GoParams struct {
	MoveTime int // milliseconds; 0 leaves it to the engine
	Depth    int
}

// String formats the params as the suffix of a go command.
func (p GoParams) String() string {
	var parts []string
	if p.MoveTime > 0 {
		parts = append(parts, fmt.Sprintf("movetime %d", p.MoveTime))
	}
	if p.Depth > 0 {
		parts = append(parts, fmt.Sprintf("depth %d", p.Depth))
	}
	return strings.Join(parts, " ")
}

// parseGoParams reads the arguments of a go command. Unknown tokens are
// skipped.
func parseGoParams(args []string) GoParams {
	var p GoParams
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "movetime":
			p.MoveTime, _ = strconv.Atoi(args[i+1])
			i++
		case "depth":
			p.Depth, _ = strconv.Atoi(args[i+1])
			i++
		}
	}
	return p
}

// parseInfo parses an info line. Missing fields stay zero and pv takes the
// rest of the line.
func parseInfo(line string) Info {
	var info Info
	tokens := strings.Fields(line)
	for i := 1; i < len(tokens); i++ {
		switch tokens[i] {
		case "pv":
			info.PV = strings.Join(tokens[i+1:], " ")
			return info
		case "depth", "nodes", "time", "score":
			if i+1 >= len(tokens) {
				return info
			}
			n, _ := strconv.Atoi(tokens[i+1])
			switch tokens[i] {
			case "depth":
				info.Depth = n
			case "nodes":
				info.Nodes = n
			case "time":
				info.Time = n
			case "score":
				info.Score = n
			}
			i++
		}
	}
	return info
}

// parseEngineOption parses an option line from the handshake:
// option name <id> type <type> [default <x>] [min <x>] [max <x>]
func parseEngineOption(line string) EngineOption {
	var opt EngineOption
	tokens := strings.Fields(line)
	for i := 1; i+1 < len(tokens); i++ {
		v := tokens[i+1]
		switch tokens[i] {
		case "name":
			opt.Name = v
		case "type":
			opt.Type = v
		case "default":
			opt.Default = v
		case "min":
			opt.Min = v
		case "max":
			opt.Max = v
		default:
			continue
		}
		i++
	}
	return opt
}
