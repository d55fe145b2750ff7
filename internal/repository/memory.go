package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/coupline/coup-server-go/internal/game"
)

type memoryRow struct {
	snapshot
	version int64
}

// MemoryStore keeps encoded snapshots in a map. It follows the same version
// rules as GameRepository and is used when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]memoryRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]memoryRow)}
}

func (m *MemoryStore) Create(_ context.Context, id string, state *game.GameState) (int64, error) {
	snap, err := encode(state)
	if err != nil {
		return 0, fmt.Errorf("failed to encode game %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[id]; exists {
		return 0, ErrGameExists
	}
	m.games[id] = memoryRow{snapshot: snap, version: 1}
	return 1, nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*game.GameState, int64, error) {
	m.mu.RLock()
	row, exists := m.games[id]
	m.mu.RUnlock()
	if !exists {
		return nil, 0, ErrGameNotFound
	}

	state, err := decode(row.data, row.checksum)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode game %s: %w", id, err)
	}
	return state, row.version, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, state *game.GameState, expectedVersion int64) (int64, error) {
	snap, err := encode(state)
	if err != nil {
		return 0, fmt.Errorf("failed to encode game %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	row, exists := m.games[id]
	if !exists {
		return 0, ErrGameNotFound
	}
	if row.version != expectedVersion {
		return 0, ErrVersionConflict
	}
	row.snapshot = snap
	row.version++
	m.games[id] = row
	return row.version, nil
}

// Len returns the number of stored games.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
