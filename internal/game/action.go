package game

import (
	"github.com/coupline/coup-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// ApplyAction declares an action for the current player. Actions that carry
// a claim or can be blocked only pay their cost and open an
// AwaitingChallenge window; their effects apply once the window closes.
func (e *Engine) ApplyAction(state *GameState, actorID string, action rules.ActionType, targetID string) (*GameState, error) {
	const op = "apply action"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	decision, err := e.ValidateAction(state, actorID, action, targetID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, validationError(op, "%s", decision.Reason)
	}

	rule, _ := rules.Lookup(action)
	if !rule.NeedsTarget {
		targetID = ""
	}

	next := state.Clone()
	actor := &next.Players[next.playerIndex(actorID)]
	actor.Coins -= rule.Cost
	if action == rules.ActionConvert {
		next.Treasury += rule.Cost
	}
	next.LastAction = ActionLog{
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
	}

	if rules.OpensResponseWindow(action, next.Settings) {
		next.Pending = &AwaitingChallenge{
			ActorID:  actorID,
			Action:   action,
			TargetID: targetID,
			PaidCost: rule.Cost,
		}
		next.LastAction.Result = ResultPending
		if e.logger != nil {
			e.logger.Debug("action awaiting responses",
				zap.String("actor", actorID),
				zap.String("action", string(action)),
				zap.String("target", targetID),
			)
		}
		return next, nil
	}

	if err := e.resolveAction(op, next, actorID, action, targetID); err != nil {
		return nil, err
	}
	return next, nil
}

// ResolveUnchallengedAction closes the response window of a declared action
// that nobody challenged or blocked, and applies its effects.
func (e *Engine) ResolveUnchallengedAction(state *GameState, actorID string) (*GameState, error) {
	const op = "resolve unchallenged action"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	if state.playerIndex(actorID) < 0 {
		return nil, notFoundError(op, "player %s", actorID)
	}
	pending, ok := state.Pending.(*AwaitingChallenge)
	if !ok || pending.ActorID != actorID {
		return nil, inconsistentError(op, "no open action from %s", actorID)
	}

	next := state.Clone()
	next.Pending = nil
	if err := e.resolveAction(op, next, pending.ActorID, pending.Action, pending.TargetID); err != nil {
		return nil, err
	}
	return next, nil
}

// resolveAction applies an action's effects to the working copy s and ends
// the turn unless the action opened a follow-up interaction.
func (e *Engine) resolveAction(op string, s *GameState, actorID string, action rules.ActionType, targetID string) error {
	s.Pending = nil
	if e.concludeIfOver(s) {
		return nil
	}

	done, err := e.applyEffect(op, s, actorID, action, targetID)
	if err != nil {
		return err
	}
	if s.LastAction.ChallengeResult == ChallengeNone {
		s.LastAction.Result = ResultResolved
	}
	if !done {
		return nil
	}
	return e.finishTurn(op, s)
}

// applyEffect mutates s. It returns false when the action continues with a
// pending interaction instead of ending the turn.
func (e *Engine) applyEffect(op string, s *GameState, actorID string, action rules.ActionType, targetID string) (bool, error) {
	aidx := s.playerIndex(actorID)
	if aidx < 0 {
		return false, notFoundError(op, "player %s", actorID)
	}
	actor := &s.Players[aidx]

	var target *Player
	if targetID != "" {
		tidx := s.playerIndex(targetID)
		if tidx < 0 {
			return false, notFoundError(op, "target %s", targetID)
		}
		target = &s.Players[tidx]
	}

	switch action {
	case rules.ActionIncome:
		actor.Coins++
	case rules.ActionForeignAid:
		actor.Coins += 2
	case rules.ActionTax:
		actor.Coins += 3
	case rules.ActionSteal:
		amount := min(2, target.Coins)
		target.Coins -= amount
		actor.Coins += amount
		s.LastAction.Stolen = amount
	case rules.ActionAssassinate, rules.ActionCoup:
		if !target.Eliminated {
			lost, _ := target.loseInfluence()
			s.LastAction.recordLoss(target.ID, lost)
		}
	case rules.ActionExchange:
		if actor.Eliminated {
			return true, nil
		}
		d := e.deckOf(s)
		drawn, err := d.Draw(rules.ExchangeDrawCount)
		if err != nil {
			return false, invariantError(op, "exchange draw: %v", err)
		}
		s.Deck = d.Cards()
		pool := append(drawn, actor.UnrevealedCharacters()...)
		s.Pending = &AwaitingExchangeSelection{
			PlayerID: actor.ID,
			Pool:     pool,
			Keep:     actor.UnrevealedCount(),
		}
		return false, nil
	case rules.ActionInterrogate:
		if chars := target.UnrevealedCharacters(); len(chars) > 0 {
			s.LastAction.Peeked = chars[0]
		}
	case rules.ActionConvert:
		if actor.Allegiance != rules.AllegianceNone {
			target.Allegiance = actor.Allegiance
		}
	default:
		return false, notFoundError(op, "action %s", action)
	}
	return true, nil
}
