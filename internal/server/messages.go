package server

import (
	"errors"
	"fmt"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/coupline/coup-server-go/internal/match"
)

var (
	errNoMatches      = errors.New("match service unavailable")
	errNotJoined      = fmt.Errorf("%w: join a match as a player first", game.ErrInconsistentState)
	errNotSeated      = fmt.Errorf("%w: player is not seated in this match", game.ErrNotFound)
	errUnknownMessage = fmt.Errorf("%w: unknown message type", game.ErrValidation)
	errMalformed      = fmt.Errorf("%w: malformed message", game.ErrValidation)
)

// commandFor converts a client message into a manager command for playerID.
func commandFor(msg ClientMessage, playerID string) (match.Command, error) {
	cmd := match.Command{
		PlayerID: playerID,
		TargetID: msg.TargetID,
		Selected: msg.Selected,
		Version:  msg.Version,
	}

	if msg.Action != "" {
		action, err := rules.ParseActionType(msg.Action)
		if err != nil {
			return match.Command{}, fmt.Errorf("%w: %v", game.ErrNotFound, err)
		}
		cmd.Action = action
	}

	switch msg.Type {
	case MsgAction:
		cmd.Kind = match.CommandAction
	case MsgChallenge:
		cmd.Kind = match.CommandChallenge
	case MsgBlock:
		cmd.Kind = match.CommandBlock
		card, err := rules.ParseCharacterType(msg.Card)
		if err != nil {
			return match.Command{}, fmt.Errorf("%w: %v", game.ErrValidation, err)
		}
		cmd.Card = card
	case MsgExchange:
		cmd.Kind = match.CommandExchange
	default:
		return match.Command{}, errUnknownMessage
	}
	return cmd, nil
}
