package game

import (
	"github.com/coupline/coup-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Challenge accuses actionPlayerID of bluffing. Against an open action the
// accused is the actor and the claim comes from the action; against an open
// block the accused is the blocker and the claim is the blocking card.
//
// If the accused holds a matching unrevealed card the challenge fails: the
// challenger loses influence and the accused swaps the proven card for a
// fresh one from the reshuffled deck. Otherwise the accused loses influence.
func (e *Engine) Challenge(state *GameState, challengerID, actionPlayerID string, action rules.ActionType) (*GameState, error) {
	const op = "challenge"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	if _, ok := rules.Lookup(action); !ok {
		return nil, notFoundError(op, "action %s", action)
	}
	cidx := state.playerIndex(challengerID)
	if cidx < 0 {
		return nil, notFoundError(op, "challenger %s", challengerID)
	}
	if state.playerIndex(actionPlayerID) < 0 {
		return nil, notFoundError(op, "player %s", actionPlayerID)
	}
	if state.Players[cidx].Eliminated {
		return nil, validationError(op, "%s has been eliminated", challengerID)
	}
	if challengerID == actionPlayerID {
		return nil, validationError(op, "you cannot challenge yourself")
	}

	var (
		claims    []rules.CharacterType
		onBlock   bool
		actorID   string
		targetID  string
		paidCost  int
		blockable bool
	)
	switch p := state.Pending.(type) {
	case *AwaitingChallenge:
		if p.ActorID != actionPlayerID || p.Action != action {
			return nil, inconsistentError(op, "no open %s from %s", action, actionPlayerID)
		}
		if p.Challenged {
			return nil, validationError(op, "%s has already been challenged", action)
		}
		claims = rules.ClaimsFor(action, state.Settings)
		if len(claims) == 0 {
			return nil, validationError(op, "%s makes no claim and cannot be challenged", action)
		}
		actorID, targetID, paidCost = p.ActorID, p.TargetID, p.PaidCost
		blockable = len(rules.BlockersFor(action, state.Settings)) > 0
	case *AwaitingBlock:
		if p.BlockerID != actionPlayerID || p.Action != action {
			return nil, inconsistentError(op, "no open block of %s by %s", action, actionPlayerID)
		}
		claims = []rules.CharacterType{p.ClaimedCard}
		onBlock = true
		actorID, targetID, paidCost = p.ActorID, p.TargetID, p.PaidCost
	case *AwaitingExchangeSelection:
		return nil, inconsistentError(op, "an exchange selection is in progress")
	case nil:
		return nil, inconsistentError(op, "there is nothing to challenge")
	default:
		return nil, invariantError(op, "unknown pending interaction %T", p)
	}

	next := state.Clone()
	next.LastAction.ChallengerID = challengerID
	challenger := &next.Players[next.playerIndex(challengerID)]
	accused := &next.Players[next.playerIndex(actionPlayerID)]

	slot := accused.findUnrevealed(claims)
	if slot >= 0 {
		lost, _ := challenger.loseInfluence()
		next.LastAction.recordLoss(challenger.ID, lost)
		if err := e.replaceProvenCard(op, next, accused, slot); err != nil {
			return nil, err
		}
		next.LastAction.ChallengeResult = ChallengeFailed
		e.logChallenge(challengerID, actionPlayerID, action, ChallengeFailed)

		if onBlock {
			// The block stands.
			next.LastAction.Result = ResultBlocked
			if err := e.finishTurn(op, next); err != nil {
				return nil, err
			}
			return next, nil
		}

		next.LastAction.Result = ResultChallenged
		if blockable && e.blockStillPossible(next, targetID) {
			if e.concludeIfOver(next) {
				return next, nil
			}
			// The claim held, but the action can still be blocked.
			next.Pending = &AwaitingChallenge{
				ActorID:    actorID,
				Action:     action,
				TargetID:   targetID,
				PaidCost:   paidCost,
				Challenged: true,
			}
			return next, nil
		}
		if err := e.resolveAction(op, next, actorID, action, targetID); err != nil {
			return nil, err
		}
		return next, nil
	}

	lost, _ := accused.loseInfluence()
	next.LastAction.recordLoss(accused.ID, lost)
	next.LastAction.ChallengeResult = ChallengeSucceeded
	e.logChallenge(challengerID, actionPlayerID, action, ChallengeSucceeded)

	if onBlock {
		// The bluffed block falls away and the original action goes through.
		if err := e.resolveAction(op, next, actorID, action, targetID); err != nil {
			return nil, err
		}
		next.LastAction.Result = ResultResolved
		return next, nil
	}

	accused.Coins += paidCost
	next.LastAction.Result = ResultCancelled
	if err := e.finishTurn(op, next); err != nil {
		return nil, err
	}
	return next, nil
}

// replaceProvenCard returns a revealed-by-proof card to the deck, reshuffles
// the whole deck and deals a replacement into the same slot.
func (e *Engine) replaceProvenCard(op string, s *GameState, p *Player, slot int) error {
	d := e.deckOf(s)
	d.ReturnAndReshuffle([]rules.CharacterType{p.Hand[slot].Character})
	drawn, err := d.Draw(1)
	if err != nil {
		return invariantError(op, "replacement draw: %v", err)
	}
	p.Hand[slot].Character = drawn[0]
	s.Deck = d.Cards()
	return nil
}

// blockStillPossible reports whether anyone can still block after a failed
// challenge. Targeted actions can only be blocked by a surviving target.
func (e *Engine) blockStillPossible(s *GameState, targetID string) bool {
	if targetID == "" {
		return true
	}
	idx := s.playerIndex(targetID)
	return idx >= 0 && !s.Players[idx].Eliminated
}

func (e *Engine) logChallenge(challengerID, accusedID string, action rules.ActionType, result ChallengeResult) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("challenge resolved",
		zap.String("challenger", challengerID),
		zap.String("accused", accusedID),
		zap.String("action", string(action)),
		zap.String("result", string(result)),
	)
}
