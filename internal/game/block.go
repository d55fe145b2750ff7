package game

import (
	"github.com/coupline/coup-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// CounterBlock claims claimedCard to block the open action. The block can be
// challenged but not blocked. Targeted actions may only be blocked by their
// target; Foreign Aid may be blocked by anyone else.
func (e *Engine) CounterBlock(state *GameState, blockerID string, action rules.ActionType, claimedCard rules.CharacterType) (*GameState, error) {
	const op = "counter block"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	if _, ok := rules.Lookup(action); !ok {
		return nil, notFoundError(op, "action %s", action)
	}
	bidx := state.playerIndex(blockerID)
	if bidx < 0 {
		return nil, notFoundError(op, "blocker %s", blockerID)
	}

	pending, ok := state.Pending.(*AwaitingChallenge)
	if !ok || pending.Action != action {
		return nil, inconsistentError(op, "no open %s to block", action)
	}
	if state.Players[bidx].Eliminated {
		return nil, validationError(op, "%s has been eliminated", blockerID)
	}
	if blockerID == pending.ActorID {
		return nil, validationError(op, "you cannot block your own action")
	}
	if !rules.CanBlock(action, claimedCard, state.Settings) {
		return nil, validationError(op, "%s cannot block %s", claimedCard, action)
	}
	if pending.TargetID != "" && pending.TargetID != blockerID {
		return nil, validationError(op, "only %s may block this %s", pending.TargetID, action)
	}

	next := state.Clone()
	next.Pending = &AwaitingBlock{
		ActorID:     pending.ActorID,
		Action:      pending.Action,
		TargetID:    pending.TargetID,
		PaidCost:    pending.PaidCost,
		BlockerID:   blockerID,
		ClaimedCard: claimedCard,
	}
	next.LastAction.BlockerID = blockerID
	next.LastAction.BlockClaim = claimedCard
	next.LastAction.Result = ResultPending

	if e.logger != nil {
		e.logger.Debug("block declared",
			zap.String("blocker", blockerID),
			zap.String("action", string(action)),
			zap.String("claim", string(claimedCard)),
		)
	}
	return next, nil
}

// ResolveUnchallengedBlock is called once the block's challenge window has
// elapsed. The blocked action never takes effect.
func (e *Engine) ResolveUnchallengedBlock(state *GameState, blockerID string, action rules.ActionType) (*GameState, error) {
	const op = "resolve unchallenged block"

	if err := requireInProgress(op, state); err != nil {
		return nil, err
	}
	if state.playerIndex(blockerID) < 0 {
		return nil, notFoundError(op, "blocker %s", blockerID)
	}
	pending, ok := state.Pending.(*AwaitingBlock)
	if !ok || pending.BlockerID != blockerID || pending.Action != action {
		return nil, inconsistentError(op, "no open block of %s by %s", action, blockerID)
	}

	next := state.Clone()
	next.LastAction.Result = ResultBlocked
	if err := e.finishTurn(op, next); err != nil {
		return nil, err
	}
	return next, nil
}
