package integration

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/coupline/coup-server-go/internal/match"
	"github.com/coupline/coup-server-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type matchEnv struct {
	manager  *match.Manager
	store    *repository.MemoryStore
	recorder *game.ReplayRecorder
	logger   *zap.Logger
}

func newMatchEnv(t testing.TB) *matchEnv {
	logger := zaptest.NewLogger(t)
	recorder := game.NewReplayRecorder(logger, t.TempDir())
	store := repository.NewMemoryStore()
	engine := game.NewEngine(logger, game.WithRand(rand.New(rand.NewPCG(21, 22))))
	manager := match.NewManager(engine, store, logger,
		match.WithReplayRecorder(recorder),
		match.WithDecisionWindow(time.Hour),
	)
	t.Cleanup(manager.Close)

	return &matchEnv{
		manager:  manager,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// seed stores a hand-built two player match where alice holds Duke and
// Captain and bob holds Contessa and Assassin.
func (env *matchEnv) seed(t testing.TB, id string) {
	settings := rules.DefaultSettings()
	remaining := make(map[rules.CharacterType]int)
	for _, c := range rules.Characters(settings) {
		remaining[c] = rules.CopiesPerCharacter
	}
	take := func(a, b rules.CharacterType) [game.HandSize]game.Card {
		remaining[a]--
		remaining[b]--
		return [game.HandSize]game.Card{{Character: a}, {Character: b}}
	}

	state := &game.GameState{
		Status:   game.StatusInProgress,
		Settings: settings,
		Players: []game.Player{
			{ID: "alice", DisplayName: "Alice", Coins: 2, Hand: take(rules.CharacterDuke, rules.CharacterCaptain)},
			{ID: "bob", DisplayName: "Bob", Coins: 2, Hand: take(rules.CharacterContessa, rules.CharacterAssassin)},
		},
		Turn: 1,
	}
	for _, c := range rules.Characters(settings) {
		for i := 0; i < remaining[c]; i++ {
			state.Deck = append(state.Deck, c)
		}
	}

	_, err := env.store.Create(context.Background(), id, state)
	require.NoError(t, err)
	env.recorder.RecordState(id, state)
}

func (env *matchEnv) act(t testing.TB, id string, cmd match.Command) *match.Snapshot {
	snap, err := env.manager.Act(context.Background(), id, cmd)
	require.NoError(t, err, "%s by %s", cmd.Kind, cmd.PlayerID)
	return snap
}

func (env *matchEnv) expire(t testing.TB, id string, version int64) *match.Snapshot {
	snap, err := env.manager.ExpireWindow(context.Background(), id, version)
	require.NoError(t, err)
	require.NotNil(t, snap, "window at version %d was already closed", version)
	return snap
}

func TestScriptedMatchToCompletion(t *testing.T) {
	env := newMatchEnv(t)
	const id = "scripted"
	env.seed(t, id)

	tax := env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "alice", Action: rules.ActionTax})
	require.NotNil(t, tax.Deadline)
	env.expire(t, id, tax.Version)

	env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "bob", Action: rules.ActionIncome})

	env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "alice", Action: rules.ActionSteal, TargetID: "bob"})
	blocked := env.act(t, id, match.Command{Kind: match.CommandBlock, PlayerID: "bob", Action: rules.ActionSteal, Card: rules.CharacterAmbassador})
	require.IsType(t, &game.AwaitingBlock{}, blocked.State.Pending)

	// bob has no Ambassador, so the steal goes through.
	stolen := env.act(t, id, match.Command{Kind: match.CommandChallenge, PlayerID: "alice", TargetID: "bob", Action: rules.ActionSteal})
	assert.Equal(t, game.ChallengeSucceeded, stolen.State.LastAction.ChallengeResult)
	assert.Equal(t, 2, stolen.State.LastAction.Stolen)
	assert.Equal(t, []rules.CharacterType{rules.CharacterContessa}, stolen.State.LastAction.LostCharacters["bob"])

	env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "bob", Action: rules.ActionIncome})
	final := env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "alice", Action: rules.ActionCoup, TargetID: "bob"})

	assert.Equal(t, int64(9), final.Version)
	assert.Equal(t, game.StatusCompleted, final.State.Status)
	assert.Equal(t, "alice", final.State.WinnerID)
	assert.Nil(t, final.Deadline)

	stored, err := env.manager.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, final.Checksum, stored.Checksum)

	replay, err := env.recorder.LoadReplay(id)
	require.NoError(t, err)
	require.Equal(t, 9, replay.Size())

	wantAliceCoins := []int{2, 2, 5, 5, 5, 5, 7, 7, 0}
	for i, want := range wantAliceCoins {
		frame := replay.GetStateAt(i)
		require.NotNil(t, frame)
		assert.Equal(t, want, frame.Players[0].Coins, "frame %d", i)
		require.NoError(t, game.ValidateSerializationRoundtrip(frame), "frame %d", i)
	}
	assert.IsType(t, &game.AwaitingBlock{}, replay.GetStateAt(5).Pending)
}

func TestStaleCommandIsRejected(t *testing.T) {
	env := newMatchEnv(t)
	const id = "stale"
	env.seed(t, id)

	first := env.act(t, id, match.Command{Kind: match.CommandAction, PlayerID: "alice", Action: rules.ActionIncome, Version: 1})
	assert.Equal(t, int64(2), first.Version)

	_, err := env.manager.Act(context.Background(), id, match.Command{Kind: match.CommandAction, PlayerID: "bob", Action: rules.ActionIncome, Version: 1})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestRandomMatchesThroughManager(t *testing.T) {
	env := newMatchEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(8, 9))

	snap, err := env.manager.Create(ctx, []game.PlayerSeat{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, rules.DefaultSettings())
	require.NoError(t, err)

	for step := 0; step < 2000 && snap.State.Status == game.StatusInProgress; step++ {
		switch p := snap.State.Pending.(type) {
		case nil:
			current, ok := snap.State.CurrentPlayer()
			require.True(t, ok)
			action := rules.ActionIncome
			target := ""
			if current.Coins >= 7 {
				action = rules.ActionCoup
				for _, other := range snap.State.Players {
					if other.ID != current.ID && !other.Eliminated {
						target = other.ID
						break
					}
				}
			} else if rng.IntN(2) == 0 {
				action = rules.ActionForeignAid
			}
			snap = env.act(t, snap.GameID, match.Command{Kind: match.CommandAction, PlayerID: current.ID, Action: action, TargetID: target})
		case *game.AwaitingChallenge:
			snap = env.expire(t, snap.GameID, snap.Version)
		default:
			t.Fatalf("unexpected pending %T", p)
		}
	}

	require.Equal(t, game.StatusCompleted, snap.State.Status)
	replay, err := env.recorder.LoadReplay(snap.GameID)
	require.NoError(t, err)
	assert.Equal(t, int(snap.Version), replay.Size())
}
