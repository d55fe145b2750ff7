package game

import (
	"github.com/coupline/coup-server-go/internal/game/rules"
)

// CompleteExchange keeps the selected characters from the exchange pool.
// Selections fill the player's unrevealed slots in order; the rest of the
// pool goes back into the deck, which is then reshuffled.
func (e *Engine) CompleteExchange(state *GameState, playerID string, selected []rules.CharacterType) (*GameState, error) {
	const op = "complete exchange"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	idx := state.playerIndex(playerID)
	if idx < 0 {
		return nil, notFoundError(op, "player %s", playerID)
	}
	pending, ok := state.Pending.(*AwaitingExchangeSelection)
	if !ok || pending.PlayerID != playerID {
		return nil, inconsistentError(op, "no exchange waiting for %s", playerID)
	}

	player := state.Players[idx]
	if want := player.UnrevealedCount(); len(selected) != want {
		return nil, selectionError(op, "selected %d cards, must keep %d", len(selected), want)
	}

	remaining := append([]rules.CharacterType(nil), pending.Pool...)
	for _, c := range selected {
		found := -1
		for i, candidate := range remaining {
			if candidate == c {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, selectionError(op, "%s is not available to keep", c)
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}

	next := state.Clone()
	p := &next.Players[idx]
	k := 0
	for slot := range p.Hand {
		if p.Hand[slot].Revealed {
			continue
		}
		p.Hand[slot].Character = selected[k]
		k++
	}

	d := e.deckOf(next)
	d.ReturnAndReshuffle(remaining)
	next.Deck = d.Cards()
	next.LastAction.Result = ResultResolved
	if next.LastAction.ChallengeResult != ChallengeNone {
		next.LastAction.Result = ResultChallenged
	}

	if err := e.finishTurn(op, next); err != nil {
		return nil, err
	}
	return next, nil
}
