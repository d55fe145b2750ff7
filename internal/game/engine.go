// Package game implements the Coup rule engine. Every operation takes an
// immutable GameState snapshot and returns a new one or a *RuleError.
// The engine performs no I/O and owns no goroutines; callers serialize
// mutating calls for a single match.
package game

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/coupline/coup-server-go/internal/game/deck"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// PlayerSeat describes a player joining a new match.
type PlayerSeat struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Engine is the rule engine facade. It is safe for concurrent use by
// different matches.
type Engine struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// lockedSource serializes draws from a source shared by every match.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// WithRand injects the random source used for shuffles and team assignment.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// NewEngine creates a rule engine.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	var src rand.Source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	if e.rng != nil {
		src = e.rng
	}
	e.rng = rand.New(&lockedSource{src: src})
	return e
}

// Initialize deals a new match.
func (e *Engine) Initialize(seats []PlayerSeat, settings rules.Settings) (*GameState, error) {
	const op = "initialize"

	if err := settings.Validate(len(seats)); err != nil {
		return nil, validationError(op, "%v", err)
	}

	seen := make(map[string]bool, len(seats))
	for _, seat := range seats {
		id := strings.TrimSpace(seat.ID)
		if id == "" {
			return nil, validationError(op, "player id is required")
		}
		if seen[id] {
			return nil, validationError(op, "duplicate player id %s", id)
		}
		seen[id] = true
	}

	d := deck.New(settings, e.rng)

	firstAllegiance := rules.AllegianceLoyalist
	if e.rng.IntN(2) == 1 {
		firstAllegiance = rules.AllegianceReformist
	}

	players := make([]Player, len(seats))
	for i, seat := range seats {
		drawn, err := d.Draw(HandSize)
		if err != nil {
			return nil, invariantError(op, "deal to %s: %v", seat.ID, err)
		}
		name := seat.DisplayName
		if name == "" {
			name = seat.ID
		}
		players[i] = Player{
			ID:          strings.TrimSpace(seat.ID),
			DisplayName: name,
			Coins:       settings.StartingCoins,
		}
		for slot := range players[i].Hand {
			players[i].Hand[slot] = Card{Character: drawn[slot]}
		}
		if settings.Expansions.Reformation {
			// Factions alternate around the table.
			if i%2 == 0 {
				players[i].Allegiance = firstAllegiance
			} else {
				players[i].Allegiance = firstAllegiance.Opposite()
			}
		}
	}

	state := &GameState{
		Status:   StatusInProgress,
		Settings: settings,
		Deck:     d.Cards(),
		Players:  players,
		Turn:     1,
	}

	if e.logger != nil {
		e.logger.Info("coup match initialized",
			zap.Int("players", len(players)),
			zap.Bool("reformation", settings.Expansions.Reformation),
			zap.Bool("inquisitor", settings.Expansions.Inquisitor),
			zap.Int("deck_size", len(state.Deck)),
		)
	}

	return state, nil
}

// ListAvailableActions returns the actions the player may declare right now.
// It is empty when it is not the player's turn.
func (e *Engine) ListAvailableActions(state *GameState, playerID string) ([]rules.ActionType, error) {
	const op = "list available actions"

	if state == nil {
		return nil, inconsistentError(op, "no game state")
	}
	idx := state.playerIndex(playerID)
	if idx < 0 {
		return nil, notFoundError(op, "player %s", playerID)
	}
	if reason := turnBlocker(state, idx); reason != "" {
		return []rules.ActionType{}, nil
	}

	validator := rules.NewValidator(state.Settings, state)
	actor := state.Players[idx].info()
	out := make([]rules.ActionType, 0, len(rules.Actions()))
	for _, action := range rules.Actions() {
		if !rules.Available(action, state.Settings) {
			continue
		}
		rule, _ := rules.Lookup(action)
		if !rule.NeedsTarget {
			if validator.CanPerformAction(actor, action, nil).Allowed {
				out = append(out, action)
			}
			continue
		}
		for i := range state.Players {
			target := state.Players[i].info()
			if validator.CanPerformAction(actor, action, &target).Allowed {
				out = append(out, action)
				break
			}
		}
	}
	return out, nil
}

// ValidateAction reports whether the player may declare action against
// targetID now. Unknown players or actions are errors; every other rejection
// is a Decision with a reason.
func (e *Engine) ValidateAction(state *GameState, playerID string, action rules.ActionType, targetID string) (rules.Decision, error) {
	const op = "validate action"

	if state == nil {
		return rules.Decision{}, inconsistentError(op, "no game state")
	}
	idx := state.playerIndex(playerID)
	if idx < 0 {
		return rules.Decision{}, notFoundError(op, "player %s", playerID)
	}
	rule, ok := rules.Lookup(action)
	if !ok {
		return rules.Decision{}, notFoundError(op, "action %s", action)
	}

	var target *rules.PlayerInfo
	if rule.NeedsTarget && targetID != "" {
		tidx := state.playerIndex(targetID)
		if tidx < 0 {
			return rules.Decision{}, notFoundError(op, "target %s", targetID)
		}
		info := state.Players[tidx].info()
		target = &info
	}

	if reason := turnBlocker(state, idx); reason != "" {
		return rules.Decision{Allowed: false, Reason: reason}, nil
	}

	validator := rules.NewValidator(state.Settings, state)
	return validator.CanPerformAction(state.Players[idx].info(), action, target), nil
}

// IsGameOver evaluates the terminal condition for state.
func (e *Engine) IsGameOver(state *GameState) Outcome {
	if state == nil {
		return Outcome{}
	}
	return EvaluateGameOver(state.Players)
}

// turnBlocker returns why the player at idx cannot declare an action, or "".
func turnBlocker(state *GameState, idx int) string {
	switch {
	case state.Status != StatusInProgress:
		return "The game is not in progress"
	case state.Pending != nil:
		return "Waiting for " + humanize(string(state.Pending.Kind()))
	case state.Players[idx].Eliminated:
		return "You have been eliminated"
	case state.CurrentPlayerIndex != idx:
		return "It is not your turn"
	}
	return ""
}

func humanize(kind string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(kind, "AWAITING_"), "_", " "))
}

// requireInProgress rejects operations on a missing or finished match.
func requireInProgress(op string, state *GameState) error {
	if state == nil {
		return inconsistentError(op, "no game state")
	}
	if state.Status != StatusInProgress {
		return validationError(op, "game is %s", strings.ToLower(string(state.Status)))
	}
	return nil
}

func (e *Engine) deckOf(state *GameState) *deck.Deck {
	return deck.FromCards(state.Deck, e.rng)
}

// advanceTurn moves to the next player who is still in the game.
func (e *Engine) advanceTurn(op string, s *GameState) error {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		next := (s.CurrentPlayerIndex + step) % n
		if !s.Players[next].Eliminated {
			s.CurrentPlayerIndex = next
			s.Turn++
			return nil
		}
	}
	err := invariantError(op, "no eligible next player after index %d", s.CurrentPlayerIndex)
	if e.logger != nil {
		e.logger.Error("turn advance failed", zap.Error(err), zap.Int("players", n))
	}
	return err
}

// finishTurn ends the match if a winner exists, otherwise passes the turn.
func (e *Engine) finishTurn(op string, s *GameState) error {
	s.Pending = nil
	if e.concludeIfOver(s) {
		return nil
	}
	return e.advanceTurn(op, s)
}

// concludeIfOver marks s completed when the game over condition holds.
func (e *Engine) concludeIfOver(s *GameState) bool {
	outcome := EvaluateGameOver(s.Players)
	if !outcome.Over {
		return false
	}
	s.Status = StatusCompleted
	s.Pending = nil
	s.WinnerID = outcome.WinnerID
	s.WinningTeam = outcome.WinningTeam
	if e.logger != nil {
		e.logger.Info("coup match completed",
			zap.String("winner", outcome.WinnerID),
			zap.Strings("team", outcome.WinningTeam),
			zap.Int("turn", s.Turn),
		)
	}
	return true
}
