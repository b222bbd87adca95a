package conversation

import (
	"errors"
	"fmt"
)

// Phase is the chat flow's position.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseSummarizing
	// PhaseGenerating is reserved. No transition enters or leaves it.
	PhaseGenerating
	PhaseCompleted
)

var phaseNames = map[Phase]string{
	PhaseInitial:     "initial",
	PhaseSummarizing: "summarizing",
	PhaseGenerating:  "generating",
	PhaseCompleted:   "completed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Event drives a phase change.
type Event int

const (
	EventSubmit Event = iota
	EventRefined
	EventRefineFailed
)

func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventRefined:
		return "refined"
	case EventRefineFailed:
		return "refine_failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrIllegalTransition is returned by Next for any pair outside the table.
var ErrIllegalTransition = errors.New("illegal phase transition")

type transition struct {
	from  Phase
	event Event
}

var transitions = map[transition]Phase{
	{PhaseInitial, EventSubmit}:           PhaseSummarizing,
	{PhaseSummarizing, EventRefined}:      PhaseCompleted,
	{PhaseSummarizing, EventRefineFailed}: PhaseInitial,
	{PhaseCompleted, EventSubmit}:         PhaseCompleted,
}

// Next returns the phase reached from p on e.
func Next(p Phase, e Event) (Phase, error) {
	if to, ok := transitions[transition{p, e}]; ok {
		return to, nil
	}
	return p, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, p, e)
}
