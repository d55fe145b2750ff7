package match

import (
	"errors"
	"fmt"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
)

// CommandKind selects the engine operation a Command runs.
type CommandKind string

const (
	CommandAction    CommandKind = "action"
	CommandChallenge CommandKind = "challenge"
	CommandBlock     CommandKind = "block"
	CommandExchange  CommandKind = "exchange"
)

// ErrUnknownCommand is returned for a CommandKind the manager does not handle.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a player's request against one match.
type Command struct {
	Kind     CommandKind      `json:"kind"`
	PlayerID string           `json:"player_id"`
	Action   rules.ActionType `json:"action,omitempty"`
	// TargetID is the action target, or the accused player for a challenge.
	TargetID string                `json:"target_id,omitempty"`
	Card     rules.CharacterType   `json:"card,omitempty"`
	Selected []rules.CharacterType `json:"selected,omitempty"`
	// Version, when set, must equal the stored version or the command is rejected.
	Version int64 `json:"version,omitempty"`
}

func (m *Manager) dispatch(state *game.GameState, cmd Command) (*game.GameState, error) {
	switch cmd.Kind {
	case CommandAction:
		return m.engine.ApplyAction(state, cmd.PlayerID, cmd.Action, cmd.TargetID)
	case CommandChallenge:
		return m.engine.Challenge(state, cmd.PlayerID, cmd.TargetID, cmd.Action)
	case CommandBlock:
		return m.engine.CounterBlock(state, cmd.PlayerID, cmd.Action, cmd.Card)
	case CommandExchange:
		return m.engine.CompleteExchange(state, cmd.PlayerID, cmd.Selected)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
}
