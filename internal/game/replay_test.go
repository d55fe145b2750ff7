package game

import (
	"testing"

	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReplayNavigation(t *testing.T) {
	engine := newTestEngine(t)
	replay := NewReplay("match-1")

	state := twoPlayerState(t)
	replay.RecordState(state)
	next, err := engine.ApplyAction(state, "p1", rules.ActionIncome, "")
	require.NoError(t, err)
	replay.RecordState(next)

	assert.Equal(t, 2, replay.Size())
	assert.Equal(t, state, replay.Next())
	assert.Equal(t, next, replay.Next())
	assert.Nil(t, replay.Next())
	assert.Equal(t, next, replay.Previous())

	replay.Start()
	assert.Equal(t, state, replay.Next())
	assert.Nil(t, replay.GetStateAt(5))
}

func TestReplayRecordsCopies(t *testing.T) {
	replay := NewReplay("match-1")
	state := twoPlayerState(t)
	replay.RecordState(state)

	state.Players[0].Coins = 99
	assert.Equal(t, 2, replay.GetStateAt(0).Players[0].Coins)
}

func TestReplaySaveAndLoad(t *testing.T) {
	engine := newTestEngine(t)
	dir := t.TempDir()
	recorder := NewReplayRecorder(zaptest.NewLogger(t), dir)

	state := twoPlayerState(t)
	recorder.RecordState("match-1", state)
	declared, err := engine.ApplyAction(state, "p1", rules.ActionTax, "")
	require.NoError(t, err)
	recorder.RecordState("match-1", declared)

	require.NoError(t, recorder.SaveReplay("match-1"))
	_, exists := recorder.GetReplay("match-1")
	assert.False(t, exists)

	loaded, err := recorder.LoadReplay("match-1")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Size())

	want, err := declared.ComputeChecksum()
	require.NoError(t, err)
	ok, err := loaded.GetStateAt(1).VerifyChecksum(want)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.IsType(t, &AwaitingChallenge{}, loaded.GetStateAt(1).Pending)

	assert.Error(t, recorder.SaveReplay("unknown"))
}
