package engine

import (
	"errors"
	"slices"
)

var ErrNotYourTurn = errors.New("not your turn")
var ErrChampionClaimed = errors.New("champion already claimed")
var ErrDraftNotActive = errors.New("draft not active")
var ErrChampionRequired = errors.New("champion required")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Side is a drafting side. team1 drafts for BLUE seats, team2 for RED seats.
type Side string

const (
	SideTeam1 Side = "team1"
	SideTeam2 Side = "team2"
)

func (s Side) Valid() bool { return s == SideTeam1 || s == SideTeam2 }

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseBanning  Phase = "banning"
	PhasePicking  Phase = "picking"
	PhaseComplete Phase = "complete"
)

type TurnStep struct {
	Side   Side   `json:"side"`
	Action Action `json:"action"`
}

// State is the draft of a single set. Bans and Picks are in claim order.
type State struct {
	Phase    Phase
	Cursor   int
	Active   bool
	Sequence []TurnStep
	Bans     []string
	Picks    []string
	// Fearless holds champions picked in earlier sets of the series.
	Fearless map[string]bool
	Rules    Rules
}

type Rules struct {
	Fearless bool
}

type CommandType string

const (
	CmdBan  CommandType = "Ban"
	CmdPick CommandType = "Pick"
)

// Command is a single draft action. AnySide lets the caller act for whichever
// side owns the turn (solo rooms).
type Command struct {
	Type     CommandType
	Side     Side
	AnySide  bool
	Champion string
}

type EventType string

const (
	EvtChampionBanned EventType = "ChampionBanned"
	EvtChampionPicked EventType = "ChampionPicked"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtDraftCompleted EventType = "DraftCompleted"
)

type Event struct {
	Type     EventType
	Side     Side
	Champion string
}

// Apply validates cmd against s and returns the resulting state. On error the
// returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if !s.Active {
		return nil, s, ErrDraftNotActive
	}
	step, done := currentStep(s)
	if done {
		return nil, s, ErrDraftNotActive
	}
	if cmd.Champion == "" {
		return nil, s, ErrChampionRequired
	}

	var want Action
	switch cmd.Type {
	case CmdBan:
		want = ActionBan
	case CmdPick:
		want = ActionPick
	default:
		return nil, s, ErrUnsupportedCommand
	}

	// Turn must match BOTH side & action
	if step.Action != want || (!cmd.AnySide && step.Side != cmd.Side) {
		return nil, s, ErrNotYourTurn
	}

	if !canClaim(s, cmd.Champion) {
		return nil, s, ErrChampionClaimed
	}

	next := s
	var events []Event
	if want == ActionBan {
		next.Bans = append(slices.Clone(s.Bans), cmd.Champion)
		events = append(events, Event{Type: EvtChampionBanned, Side: step.Side, Champion: cmd.Champion})
	} else {
		next.Picks = append(slices.Clone(s.Picks), cmd.Champion)
		events = append(events, Event{Type: EvtChampionPicked, Side: step.Side, Champion: cmd.Champion})
	}

	next.Cursor++
	next.Phase = DerivePhase(next)
	events = append(events, Event{Type: EvtTurnAdvanced})
	if next.Phase == PhaseComplete {
		events = append(events, Event{Type: EvtDraftCompleted})
	}
	return events, next, nil
}

func hasPick(s State, champion string) bool {
	return slices.Contains(s.Picks, champion)
}

func hasBan(s State, champion string) bool {
	return slices.Contains(s.Bans, champion)
}

func canClaim(s State, champion string) bool {
	if hasBan(s, champion) || hasPick(s, champion) {
		return false
	}
	if s.Rules.Fearless && s.Fearless[champion] {
		return false
	}
	return true
}

func currentStep(s State) (TurnStep, bool) {
	if s.Cursor >= len(s.Sequence) {
		return TurnStep{}, true
	}
	return s.Sequence[s.Cursor], false
}

// CurrentStep reports the step awaiting an action. ok is false when the draft
// is idle or complete.
func CurrentStep(s State) (TurnStep, bool) {
	if !s.Active {
		return TurnStep{}, false
	}
	step, done := currentStep(s)
	return step, !done
}
