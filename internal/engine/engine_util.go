package engine

import "slices"

// NewIdleState is the draft before the room has started.
func NewIdleState(mode Mode) State {
	s := State{
		Sequence: slices.Clone(mode.Sequence),
		Bans:     []string{},
		Picks:    []string{},
		Fearless: map[string]bool{},
		Rules:    Rules{Fearless: mode.Fearless},
	}
	s.Phase = DerivePhase(s)
	return s
}

// Start arms the draft at turn zero.
func Start(s State) State {
	s.Active = true
	s.Cursor = 0
	s.Bans = []string{}
	s.Picks = []string{}
	s.Phase = DerivePhase(s)
	return s
}

// NextSet carries the fearless pool forward and restarts the draft.
func NextSet(s State) State {
	pool := make(map[string]bool, len(s.Fearless)+len(s.Picks))
	for c := range s.Fearless {
		pool[c] = true
	}
	for _, c := range s.Picks {
		pool[c] = true
	}
	s.Fearless = pool
	return Start(s)
}

// Stop returns the draft to idle, keeping the set's claims for display.
func Stop(s State) State {
	s.Active = false
	s.Phase = DerivePhase(s)
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func DerivePhase(s State) Phase {
	if !s.Active {
		return PhaseIdle
	}
	step, done := currentStep(s)
	if done {
		return PhaseComplete
	}
	if step.Action == ActionBan {
		return PhaseBanning
	}
	return PhasePicking
}
