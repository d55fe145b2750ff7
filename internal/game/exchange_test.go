package game

import (
	"testing"

	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openExchange(t *testing.T, engine *Engine, state *GameState) *GameState {
	t.Helper()
	declared, err := engine.ApplyAction(state, "p1", rules.ActionExchange, "")
	require.NoError(t, err)
	next, err := engine.ResolveUnchallengedAction(declared, "p1")
	require.NoError(t, err)
	return next
}

func TestExchangeRestoresDeckSize(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	deckSize := len(state.Deck)

	selecting := openExchange(t, engine, state)
	pending, ok := selecting.Pending.(*AwaitingExchangeSelection)
	require.True(t, ok, "expected exchange selection, got %T", selecting.Pending)
	assert.Equal(t, "p1", pending.PlayerID)
	assert.Len(t, pending.Pool, 4)
	assert.Equal(t, 2, pending.Keep)
	assert.Len(t, selecting.Deck, deckSize-2)
	assert.Equal(t, 0, selecting.CurrentPlayerIndex, "turn waits for the selection")
	requireInvariants(t, selecting)

	keep := []rules.CharacterType{pending.Pool[0], pending.Pool[1]}
	next, err := engine.CompleteExchange(selecting, "p1", keep)
	require.NoError(t, err)

	p1 := mustPlayer(t, next, "p1")
	assert.Equal(t, keep[0], p1.Hand[0].Character)
	assert.Equal(t, keep[1], p1.Hand[1].Character)
	assert.Equal(t, 2, p1.UnrevealedCount())
	assert.Len(t, next.Deck, deckSize)
	assert.Nil(t, next.Pending)
	assert.Equal(t, 1, next.CurrentPlayerIndex)
	requireInvariants(t, next)
}

func TestExchangeWithOneInfluence(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	state.Players[0].Hand[0].Revealed = true

	selecting := openExchange(t, engine, state)
	pending := selecting.Pending.(*AwaitingExchangeSelection)
	assert.Len(t, pending.Pool, 3)
	assert.Equal(t, 1, pending.Keep)

	next, err := engine.CompleteExchange(selecting, "p1", []rules.CharacterType{pending.Pool[2]})
	require.NoError(t, err)

	p1 := mustPlayer(t, next, "p1")
	assert.Equal(t, rules.CharacterDuke, p1.Hand[0].Character, "revealed slot untouched")
	assert.True(t, p1.Hand[0].Revealed)
	assert.Equal(t, rules.CharacterCaptain, p1.Hand[1].Character)
	assert.Equal(t, 1, p1.UnrevealedCount())
	requireInvariants(t, next)
}

func TestCompleteExchangeRejections(t *testing.T) {
	engine := newTestEngine(t)
	state := twoPlayerState(t)
	selecting := openExchange(t, engine, state)
	pending := selecting.Pending.(*AwaitingExchangeSelection)

	_, err := engine.CompleteExchange(state, "p1", []rules.CharacterType{rules.CharacterDuke, rules.CharacterDuke})
	assert.ErrorIs(t, err, ErrInconsistentState, "no pending exchange")

	_, err = engine.CompleteExchange(selecting, "p2", []rules.CharacterType{rules.CharacterDuke, rules.CharacterDuke})
	assert.ErrorIs(t, err, ErrInconsistentState, "wrong player")

	_, err = engine.CompleteExchange(selecting, "p1", []rules.CharacterType{pending.Pool[0]})
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.ErrorIs(t, err, ErrInconsistentState)

	counts := map[rules.CharacterType]int{}
	for _, c := range pending.Pool {
		counts[c]++
	}
	var missing rules.CharacterType
	for _, c := range rules.Characters(state.Settings) {
		if counts[c] == 0 {
			missing = c
			break
		}
	}
	require.NotEmpty(t, missing)
	_, err = engine.CompleteExchange(selecting, "p1", []rules.CharacterType{pending.Pool[0], missing})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = engine.CompleteExchange(selecting, "ghost", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChallengedExchangeStillSwaps(t *testing.T) {
	engine := newTestEngine(t)
	state := stateWithHands(t, rules.DefaultSettings(),
		hand(rules.CharacterAmbassador, rules.CharacterCaptain),
		hand(rules.CharacterContessa, rules.CharacterAssassin),
		hand(rules.CharacterDuke, rules.CharacterDuke),
	)

	declared, err := engine.ApplyAction(state, "p1", rules.ActionExchange, "")
	require.NoError(t, err)
	next, err := engine.Challenge(declared, "p3", "p1", rules.ActionExchange)
	require.NoError(t, err)

	_, ok := next.Pending.(*AwaitingExchangeSelection)
	require.True(t, ok, "expected exchange selection, got %T", next.Pending)
	assert.Equal(t, ChallengeFailed, next.LastAction.ChallengeResult)
	assert.Equal(t, 1, mustPlayer(t, next, "p3").UnrevealedCount())
	requireInvariants(t, next)
}
