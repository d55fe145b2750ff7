package game

import (
	"math/rand/v2"
	"testing"

	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(zaptest.NewLogger(t), WithRand(rand.New(rand.NewPCG(1, 2))))
}

// stateWithHands builds an in-progress match where player i (ids "p1", "p2",
// ...) holds hands[i]. The rest of the cards form the deck.
func stateWithHands(t *testing.T, settings rules.Settings, hands ...[HandSize]rules.CharacterType) *GameState {
	t.Helper()

	remaining := make(map[rules.CharacterType]int)
	for _, c := range rules.Characters(settings) {
		remaining[c] = rules.CopiesPerCharacter
	}

	players := make([]Player, len(hands))
	for i, hand := range hands {
		players[i] = Player{
			ID:          playerID(i),
			DisplayName: playerID(i),
			Coins:       2,
		}
		for slot, c := range hand {
			require.Positive(t, remaining[c], "no %s left for %s", c, playerID(i))
			remaining[c]--
			players[i].Hand[slot] = Card{Character: c}
		}
	}

	var deck []rules.CharacterType
	for _, c := range rules.Characters(settings) {
		for i := 0; i < remaining[c]; i++ {
			deck = append(deck, c)
		}
	}

	return &GameState{
		Status:   StatusInProgress,
		Settings: settings,
		Deck:     deck,
		Players:  players,
		Turn:     1,
	}
}

func playerID(i int) string {
	return "p" + string(rune('1'+i))
}

func hand(a, b rules.CharacterType) [HandSize]rules.CharacterType {
	return [HandSize]rules.CharacterType{a, b}
}

func mustPlayer(t *testing.T, s *GameState, id string) *Player {
	t.Helper()
	p, ok := s.Player(id)
	require.True(t, ok, "player %s not found", id)
	return &p
}

func revealedCount(s *GameState) int {
	n := 0
	for _, p := range s.Players {
		for _, c := range p.Hand {
			if c.Revealed {
				n++
			}
		}
	}
	return n
}

// requireInvariants checks the properties every reachable state must hold.
func requireInvariants(t *testing.T, s *GameState) {
	t.Helper()
	require.Equal(t, rules.DeckSize(s.Settings), s.CardsInPlay(), "card total changed")

	counts := make(map[rules.CharacterType]int)
	for _, c := range s.Deck {
		counts[c]++
	}
	for _, c := range s.drawnForExchange() {
		counts[c]++
	}
	for _, p := range s.Players {
		require.Len(t, p.Hand, HandSize)
		require.GreaterOrEqual(t, p.Coins, 0, "player %s has negative coins", p.ID)
		require.Equal(t, p.UnrevealedCount() == 0, p.Eliminated, "player %s elimination mismatch", p.ID)
		for _, c := range p.Hand {
			counts[c.Character]++
		}
	}
	for _, c := range rules.Characters(s.Settings) {
		require.Equal(t, rules.CopiesPerCharacter, counts[c], "wrong number of %s", c)
	}
}
