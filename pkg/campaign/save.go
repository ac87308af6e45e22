package campaign

import (
	"encoding/json"
	"fmt"
	"time"
)

// SaveVersion is the save file format written by EncodeSave.
const SaveVersion = 1

// SaveMetadata describes a save without its state.
type SaveMetadata struct {
	Name        string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
	Summary     string    `json:"summary"`
	ActionCount int       `json:"actionCount"`
}

// SaveFile is the on-disk form of a game in progress.
type SaveFile struct {
	Version  int          `json:"version"`
	Metadata SaveMetadata `json:"metadata"`
	State    *GameState   `json:"state"`
}

// Summarize describes a state in one line, e.g. "Turn 3, japan, Conduct Combat".
func Summarize(gs *GameState) string {
	if gs.Winner != "" {
		return fmt.Sprintf("Turn %d, %s victory", gs.Turn, gs.Winner)
	}
	return fmt.Sprintf("Turn %d, %s, %s", gs.Turn, gs.Current, gs.Phase.Description())
}

// EncodeSave serializes a game under the given name.
func EncodeSave(name string, gs *GameState, now time.Time) ([]byte, error) {
	sf := SaveFile{
		Version: SaveVersion,
		Metadata: SaveMetadata{
			Name:        name,
			Timestamp:   now.UTC(),
			Summary:     Summarize(gs),
			ActionCount: len(gs.Log),
		},
		State: gs,
	}
	data, err := json.Marshal(sf)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// DecodeSave parses a save file and checks that its state is usable.
func DecodeSave(data []byte) (*SaveFile, error) {
	var sf SaveFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode save: %w", err)
	}
	if sf.Version != SaveVersion {
		return nil, fmt.Errorf("decode save: unsupported version %d", sf.Version)
	}
	if sf.State == nil {
		return nil, fmt.Errorf("decode save: missing state")
	}
	if err := sf.State.CheckIntegrity(); err != nil {
		return nil, fmt.Errorf("decode save: %w", err)
	}
	return &sf, nil
}

// PeekMetadata reads only the metadata of a save file.
func PeekMetadata(data []byte) (SaveMetadata, error) {
	var head struct {
		Version  int          `json:"version"`
		Metadata SaveMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return SaveMetadata{}, fmt.Errorf("peek save: %w", err)
	}
	if head.Version != SaveVersion {
		return SaveMetadata{}, fmt.Errorf("peek save: unsupported version %d", head.Version)
	}
	return head.Metadata, nil
}
