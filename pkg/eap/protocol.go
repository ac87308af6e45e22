// Package eap implements the external engine protocol, a line-based
// protocol for driving Iron Alliance bots that run as separate processes.
//
// The client sends "eap" and the engine answers with id and option lines
// followed by "eapok". "isready" is answered with "readyok". A position is
// sent as "position <base64 json game state>" and "go [movetime <ms>]"
// makes the engine emit any number of "info" lines and then
// "bestaction <notation>". "stop" forces an answer and "quit" ends the
// session.
package eap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// ProtocolVersion is reported by Serve during the handshake.
const ProtocolVersion = 1

// EncodePosition returns the argument of a position command. The action
// log is left out.
func EncodePosition(gs *campaign.GameState) (string, error) {
	pos := *gs
	pos.Log = nil
	pos.Checkpoints = []int{0}
	data, err := json.Marshal(&pos)
	if err != nil {
		return "", fmt.Errorf("eap: encode position: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePosition parses the argument of a position command.
func DecodePosition(arg string) (*campaign.GameState, error) {
	data, err := base64.StdEncoding.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("eap: decode position: %w", err)
	}
	var gs campaign.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("eap: decode position: %w", err)
	}
	return &gs, nil
}
