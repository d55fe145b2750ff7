package game

import (
	"testing"

	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeAgainstTrueDukeFails(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)

	declared, err := engine.ApplyAction(state, "p1", rules.ActionTax, "")
	require.NoError(t, err)
	deckSize := len(declared.Deck)

	next, err := engine.Challenge(declared, "p2", "p1", rules.ActionTax)
	require.NoError(t, err)

	challenger := mustPlayer(t, next, "p2")
	assert.True(t, challenger.Hand[0].Revealed)
	assert.Equal(t, 1, challenger.UnrevealedCount())

	duke := mustPlayer(t, next, "p1")
	assert.Equal(t, 2, duke.UnrevealedCount(), "proven card is replaced, not revealed")
	assert.Len(t, duke.Hand, 2)
	assert.Equal(t, rules.CharacterCaptain, duke.Hand[1].Character, "other slot untouched")
	assert.Equal(t, 5, duke.Coins, "tax goes through")

	assert.Equal(t, deckSize, len(next.Deck))
	assert.Equal(t, ResultChallenged, next.LastAction.Result)
	assert.Equal(t, ChallengeFailed, next.LastAction.ChallengeResult)
	assert.Equal(t, "p2", next.LastAction.ChallengerID)
	assert.Equal(t, 1, next.CurrentPlayerIndex)
	requireInvariants(t, next)
}

func TestChallengeAgainstBluffSucceedsAndRefunds(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	state.Players[0].Coins = 3

	// p1 holds no Assassin.
	declared, err := engine.ApplyAction(state, "p1", rules.ActionAssassinate, "p2")
	require.NoError(t, err)

	next, err := engine.Challenge(declared, "p2", "p1", rules.ActionAssassinate)
	require.NoError(t, err)

	bluffer := mustPlayer(t, next, "p1")
	assert.True(t, bluffer.Hand[0].Revealed)
	assert.Equal(t, 3, bluffer.Coins, "cost refunded")

	target := mustPlayer(t, next, "p2")
	assert.Equal(t, 2, target.UnrevealedCount(), "cancelled action has no effect")

	assert.Equal(t, ResultCancelled, next.LastAction.Result)
	assert.Equal(t, ChallengeSucceeded, next.LastAction.ChallengeResult)
	assert.Nil(t, next.Pending)
	assert.Equal(t, 1, next.CurrentPlayerIndex)
	requireInvariants(t, next)
}

func TestFailedChallengeKeepsBlockWindowOpen(t *testing.T) {
	engine := newTestEngine(t)
	state := stateWithHands(t, rules.DefaultSettings(),
		hand(rules.CharacterAssassin, rules.CharacterCaptain),
		hand(rules.CharacterDuke, rules.CharacterContessa),
	)
	state.Players[0].Coins = 3

	declared, err := engine.ApplyAction(state, "p1", rules.ActionAssassinate, "p2")
	require.NoError(t, err)
	challenged, err := engine.Challenge(declared, "p2", "p1", rules.ActionAssassinate)
	require.NoError(t, err)

	pending, ok := challenged.Pending.(*AwaitingChallenge)
	require.True(t, ok, "expected block window, got %T", challenged.Pending)
	assert.True(t, pending.Challenged)
	assert.Equal(t, 1, mustPlayer(t, challenged, "p2").UnrevealedCount())

	_, err = engine.Challenge(challenged, "p2", "p1", rules.ActionAssassinate)
	assert.ErrorIs(t, err, ErrValidation, "a claim can only be challenged once")

	// p2 still holds Contessa in slot 1 and blocks.
	blocked, err := engine.CounterBlock(challenged, "p2", rules.ActionAssassinate, rules.CharacterContessa)
	require.NoError(t, err)
	final, err := engine.ResolveUnchallengedBlock(blocked, "p2", rules.ActionAssassinate)
	require.NoError(t, err)

	assert.Equal(t, 1, mustPlayer(t, final, "p2").UnrevealedCount())
	assert.False(t, mustPlayer(t, final, "p2").Eliminated)
	assert.Equal(t, ResultBlocked, final.LastAction.Result)
	requireInvariants(t, final)
}

func TestFailedChallengeEliminatingChallengerEndsGame(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	state.Players[1].Hand[0].Revealed = true

	declared, err := engine.ApplyAction(state, "p1", rules.ActionTax, "")
	require.NoError(t, err)
	next, err := engine.Challenge(declared, "p2", "p1", rules.ActionTax)
	require.NoError(t, err)

	assert.True(t, mustPlayer(t, next, "p2").Eliminated)
	assert.Equal(t, StatusCompleted, next.Status)
	assert.Equal(t, "p1", next.WinnerID)
	assert.Nil(t, next.Pending)
}

func TestChallengeBlockBluffLetsActionThrough(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	state.Players[1].Coins = 4

	declared, err := engine.ApplyAction(state, "p1", rules.ActionSteal, "p2")
	require.NoError(t, err)
	// p2 holds neither Captain nor Ambassador.
	blocked, err := engine.CounterBlock(declared, "p2", rules.ActionSteal, rules.CharacterCaptain)
	require.NoError(t, err)

	next, err := engine.Challenge(blocked, "p1", "p2", rules.ActionSteal)
	require.NoError(t, err)

	assert.Equal(t, 1, mustPlayer(t, next, "p2").UnrevealedCount())
	assert.Equal(t, 4, mustPlayer(t, next, "p1").Coins)
	assert.Equal(t, 2, mustPlayer(t, next, "p2").Coins)
	assert.Equal(t, ChallengeSucceeded, next.LastAction.ChallengeResult)
	assert.Equal(t, ResultResolved, next.LastAction.Result)
	assert.Equal(t, 1, next.CurrentPlayerIndex)
	requireInvariants(t, next)
}

func TestChallengeTrueBlockStands(t *testing.T) {
	engine := newTestEngine(t)
	state := stateWithHands(t, rules.DefaultSettings(),
		hand(rules.CharacterCaptain, rules.CharacterCaptain),
		hand(rules.CharacterDuke, rules.CharacterAssassin),
	)

	declared, err := engine.ApplyAction(state, "p1", rules.ActionForeignAid, "")
	require.NoError(t, err)
	blocked, err := engine.CounterBlock(declared, "p2", rules.ActionForeignAid, rules.CharacterDuke)
	require.NoError(t, err)
	deckSize := len(blocked.Deck)

	next, err := engine.Challenge(blocked, "p1", "p2", rules.ActionForeignAid)
	require.NoError(t, err)

	assert.Equal(t, 1, mustPlayer(t, next, "p1").UnrevealedCount(), "challenger loses influence")
	assert.Equal(t, 2, mustPlayer(t, next, "p1").Coins, "blocked aid never pays out")
	assert.Equal(t, 2, mustPlayer(t, next, "p2").UnrevealedCount())
	assert.Equal(t, deckSize, len(next.Deck))
	assert.Equal(t, ResultBlocked, next.LastAction.Result)
	assert.Equal(t, ChallengeFailed, next.LastAction.ChallengeResult)
	assert.Nil(t, next.Pending)
	assert.Equal(t, 1, next.CurrentPlayerIndex)
	requireInvariants(t, next)
}

func TestChallengeBluffedDukeBlockPaysForeignAid(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)

	declared, err := engine.ApplyAction(state, "p1", rules.ActionForeignAid, "")
	require.NoError(t, err)
	// p2 holds Contessa and Assassin.
	blocked, err := engine.CounterBlock(declared, "p2", rules.ActionForeignAid, rules.CharacterDuke)
	require.NoError(t, err)

	next, err := engine.Challenge(blocked, "p1", "p2", rules.ActionForeignAid)
	require.NoError(t, err)

	assert.Equal(t, 4, mustPlayer(t, next, "p1").Coins)
	assert.Equal(t, 1, mustPlayer(t, next, "p2").UnrevealedCount())
	requireInvariants(t, next)
}

func TestChallengeRejections(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)

	_, err := engine.Challenge(state, "p2", "p1", rules.ActionTax)
	assert.ErrorIs(t, err, ErrInconsistentState, "nothing pending")

	aid, err := engine.ApplyAction(state, "p1", rules.ActionForeignAid, "")
	require.NoError(t, err)
	_, err = engine.Challenge(aid, "p2", "p1", rules.ActionForeignAid)
	assert.ErrorIs(t, err, ErrValidation, "foreign aid makes no claim")

	tax, err := engine.ApplyAction(state, "p1", rules.ActionTax, "")
	require.NoError(t, err)
	_, err = engine.Challenge(tax, "p1", "p1", rules.ActionTax)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = engine.Challenge(tax, "p2", "p1", rules.ActionSteal)
	assert.ErrorIs(t, err, ErrInconsistentState)
	_, err = engine.Challenge(tax, "ghost", "p1", rules.ActionTax)
	assert.ErrorIs(t, err, ErrNotFound)
}
