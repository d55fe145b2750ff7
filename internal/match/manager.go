// Package match runs Coup matches: it loads snapshots, applies player
// commands through the rule engine, persists the result and notifies
// subscribers. Open challenge and block windows close on a timer.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/coupline/coup-server-go/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDecisionWindow is used when no window is configured.
const DefaultDecisionWindow = 10 * time.Second

// Store persists versioned snapshots. Implemented by repository.GameRepository
// and repository.MemoryStore.
type Store interface {
	Create(ctx context.Context, id string, state *game.GameState) (int64, error)
	Load(ctx context.Context, id string) (*game.GameState, int64, error)
	Save(ctx context.Context, id string, state *game.GameState, expectedVersion int64) (int64, error)
}

// Broadcaster delivers snapshots to everyone watching a match.
type Broadcaster interface {
	Broadcast(snapshot *Snapshot)
}

// Snapshot is a stored match state with its version.
type Snapshot struct {
	GameID  string `json:"game_id"`
	Version int64  `json:"version"`
	// Checksum covers the full state including hidden cards. It is for
	// storage and replay checks and is never sent to clients.
	Checksum string          `json:"checksum"`
	State    *game.GameState `json:"state"`
	// Deadline is when the open challenge or block window closes, if any.
	Deadline *time.Time `json:"deadline,omitempty"`
}

// Manager coordinates matches.
type Manager struct {
	engine      *game.Engine
	store       Store
	broadcaster Broadcaster
	recorder    *game.ReplayRecorder
	window      time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithBroadcaster sets where committed snapshots are published.
func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

// WithReplayRecorder records every committed snapshot and saves the replay
// once the match completes.
func WithReplayRecorder(r *game.ReplayRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithDecisionWindow sets how long challenge and block windows stay open.
// Non-positive durations keep the default.
func WithDecisionWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// NewManager creates a match manager.
func NewManager(engine *game.Engine, store Store, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		engine: engine,
		store:  store,
		window: DefaultDecisionWindow,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockFor(gameID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[gameID] = lock
	}
	return lock
}

// Create deals a new match and stores it at version 1.
func (m *Manager) Create(ctx context.Context, seats []game.PlayerSeat, settings rules.Settings) (*Snapshot, error) {
	state, err := m.engine.Initialize(seats, settings)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	version, err := m.store.Create(ctx, id, state)
	if err != nil {
		return nil, fmt.Errorf("failed to store match %s: %w", id, err)
	}

	if m.logger != nil {
		m.logger.Info("match created",
			zap.String("game_id", id),
			zap.Int("players", len(seats)),
		)
	}
	return m.publish(id, version, state)
}

// Get returns the latest snapshot of a match.
func (m *Manager) Get(ctx context.Context, gameID string) (*Snapshot, error) {
	state, version, err := m.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return m.snapshot(gameID, version, state)
}

// Act applies cmd to the match. Commands for the same match are serialized.
func (m *Manager) Act(ctx context.Context, gameID string, cmd Command) (*Snapshot, error) {
	lock := m.lockFor(gameID)
	lock.Lock()
	defer lock.Unlock()

	state, version, err := m.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if cmd.Version != 0 && cmd.Version != version {
		return nil, fmt.Errorf("%w: command for version %d, match is at %d",
			repository.ErrVersionConflict, cmd.Version, version)
	}

	next, err := m.dispatch(state, cmd)
	if err != nil {
		if m.logger != nil {
			m.logger.Debug("command rejected",
				zap.String("game_id", gameID),
				zap.String("kind", string(cmd.Kind)),
				zap.String("player", cmd.PlayerID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return m.commit(ctx, gameID, version, next)
}

// ExpireWindow closes the challenge or block window that was open at
// version. It returns a nil snapshot if the match has moved on since.
func (m *Manager) ExpireWindow(ctx context.Context, gameID string, version int64) (*Snapshot, error) {
	lock := m.lockFor(gameID)
	lock.Lock()
	defer lock.Unlock()

	state, current, err := m.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if current != version {
		return nil, nil
	}

	var next *game.GameState
	switch p := state.Pending.(type) {
	case *game.AwaitingChallenge:
		next, err = m.engine.ResolveUnchallengedAction(state, p.ActorID)
	case *game.AwaitingBlock:
		next, err = m.engine.ResolveUnchallengedBlock(state, p.BlockerID, p.Action)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Debug("decision window expired",
			zap.String("game_id", gameID),
			zap.Int64("version", version),
		)
	}
	return m.commit(ctx, gameID, version, next)
}

func (m *Manager) commit(ctx context.Context, gameID string, version int64, next *game.GameState) (*Snapshot, error) {
	saved, err := m.store.Save(ctx, gameID, next, version)
	if err != nil {
		return nil, fmt.Errorf("failed to save match %s: %w", gameID, err)
	}

	if next.Status == game.StatusCompleted {
		m.finish(gameID, next)
	}
	return m.publish(gameID, saved, next)
}

// publish records, arms the window timer and broadcasts.
func (m *Manager) publish(gameID string, version int64, state *game.GameState) (*Snapshot, error) {
	if m.recorder != nil {
		m.recorder.RecordState(gameID, state)
		if state.Status == game.StatusCompleted {
			if err := m.recorder.SaveReplay(gameID); err != nil && m.logger != nil {
				m.logger.Warn("failed to save replay", zap.String("game_id", gameID), zap.Error(err))
			}
		}
	}

	snap, err := m.snapshot(gameID, version, state)
	if err != nil {
		return nil, err
	}
	snap.Deadline = m.arm(gameID, version, state)

	if m.broadcaster != nil {
		m.broadcaster.Broadcast(snap)
	}
	return snap, nil
}

func (m *Manager) snapshot(gameID string, version int64, state *game.GameState) (*Snapshot, error) {
	sum, err := state.ComputeChecksum()
	if err != nil {
		return nil, err
	}
	return &Snapshot{GameID: gameID, Version: version, Checksum: sum.Hash, State: state}, nil
}

// arm replaces the match timer. A timer runs only while a challenge or block
// window is open.
func (m *Manager) arm(gameID string, version int64, state *game.GameState) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[gameID]; ok {
		t.Stop()
		delete(m.timers, gameID)
	}
	if m.closed || state.Status != game.StatusInProgress {
		return nil
	}
	switch state.Pending.(type) {
	case *game.AwaitingChallenge, *game.AwaitingBlock:
	default:
		return nil
	}

	deadline := time.Now().Add(m.window)
	m.timers[gameID] = time.AfterFunc(m.window, func() {
		if _, err := m.ExpireWindow(context.Background(), gameID, version); err != nil && m.logger != nil {
			m.logger.Error("failed to close decision window",
				zap.String("game_id", gameID),
				zap.Int64("version", version),
				zap.Error(err),
			)
		}
	})
	return &deadline
}

func (m *Manager) finish(gameID string, state *game.GameState) {
	if m.logger != nil {
		m.logger.Info("match completed",
			zap.String("game_id", gameID),
			zap.String("winner", state.WinnerID),
			zap.Strings("team", state.WinningTeam),
		)
	}
}

// Close stops every pending window timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// IsConflict reports whether err came from a stale version.
func IsConflict(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict)
}
