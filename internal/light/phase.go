package light

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownPhase = errors.New("unknown phase")

type Phase int

const (
	Red Phase = iota
	Green
)

func (p Phase) String() string {
	switch p {
	case Red:
		return "red"
	case Green:
		return "green"
	default:
		return "unknown"
	}
}

// Toggle returns the phase that follows p.
func (p Phase) Toggle() Phase {
	if p == Green {
		return Red
	}
	return Green
}

func (p Phase) MarshalText() ([]byte, error) {
	if p != Red && p != Green {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPhase, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	default:
		return Red, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
}

// PhaseEvent is one observation of a light. Seq is 0 for the initial state
// and increases by one on every toggle.
type PhaseEvent struct {
	Light    uuid.UUID `json:"light"`
	Phase    Phase     `json:"phase"`
	Seq      uint64    `json:"seq"`
	At       time.Time `json:"at"`
	Snapshot bool      `json:"snapshot,omitempty"`
}
