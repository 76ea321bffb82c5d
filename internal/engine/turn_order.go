package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrInvalidMode = errors.New("invalid draft mode")

// Mode is a named ban/pick ritual.
type Mode struct {
	Name     string     `json:"name"`
	Fearless bool       `json:"fearless"`
	Sequence []TurnStep `json:"sequence"`
}

type ModeSet map[string]Mode

var TournamentOrder = []TurnStep{
	// Ban Phase 1
	{Side: SideTeam1, Action: ActionBan},
	{Side: SideTeam2, Action: ActionBan},
	{Side: SideTeam1, Action: ActionBan},
	{Side: SideTeam2, Action: ActionBan},
	{Side: SideTeam1, Action: ActionBan},
	{Side: SideTeam2, Action: ActionBan},
	// Pick Phase 1
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	// Ban Phase 2
	{Side: SideTeam2, Action: ActionBan},
	{Side: SideTeam1, Action: ActionBan},
	{Side: SideTeam2, Action: ActionBan},
	{Side: SideTeam1, Action: ActionBan},
	// Pick Phase 2
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
}

var QuickOrder = []TurnStep{
	{Side: SideTeam1, Action: ActionBan},
	{Side: SideTeam2, Action: ActionBan},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam1, Action: ActionPick},
	{Side: SideTeam2, Action: ActionPick},
}

func DefaultModes() ModeSet {
	return ModeSet{
		"tournament": {Name: "tournament", Sequence: TournamentOrder},
		"fearless":   {Name: "fearless", Sequence: TournamentOrder, Fearless: true},
		"quick":      {Name: "quick", Sequence: QuickOrder},
	}
}

// Lookup is case-insensitive on the mode name.
func (m ModeSet) Lookup(name string) (Mode, bool) {
	mode, ok := m[strings.ToLower(strings.TrimSpace(name))]
	return mode, ok
}

func (m Mode) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMode)
	}
	if len(m.Sequence) == 0 {
		return fmt.Errorf("%w: %s has an empty sequence", ErrInvalidMode, m.Name)
	}
	for i, step := range m.Sequence {
		if !step.Side.Valid() {
			return fmt.Errorf("%w: %s step %d has side %q", ErrInvalidMode, m.Name, i, step.Side)
		}
		if step.Action != ActionBan && step.Action != ActionPick {
			return fmt.Errorf("%w: %s step %d has action %q", ErrInvalidMode, m.Name, i, step.Action)
		}
	}
	return nil
}

// LoadModes reads extra modes from a JSON file and layers them over the
// built-in set. An empty path yields the built-ins.
func LoadModes(path string) (ModeSet, error) {
	modes := DefaultModes()
	if path == "" {
		return modes, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft modes: %w", err)
	}

	var doc struct {
		Modes []Mode `json:"modes"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse draft modes: %w", err)
	}

	for _, mode := range doc.Modes {
		if err := mode.Validate(); err != nil {
			return nil, err
		}
		mode.Name = strings.ToLower(strings.TrimSpace(mode.Name))
		modes[mode.Name] = mode
	}
	return modes, nil
}
