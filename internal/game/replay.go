package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is the ordered list of snapshots a match went through.
type Replay struct {
	GameID       string
	States       []*GameState
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		States: make([]*GameState, 0),
	}
}

// RecordState appends a copy of state.
func (r *Replay) RecordState(state *GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.States = append(r.States, state.Clone())
}

// Start rewinds to the first snapshot.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the snapshot at the cursor and moves forward, or nil at the end.
func (r *Replay) Next() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		state := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return state.Clone()
	}
	return nil
}

// Previous moves back one snapshot and returns it, or nil at the start.
func (r *Replay) Previous() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex].Clone()
	}
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.States)
}

// GetStateAt returns a copy of the snapshot at index.
func (r *Replay) GetStateAt(index int) *GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.States) {
		return r.States[index].Clone()
	}
	return nil
}

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// SaveToFile writes the replay to <directory>/<game id>.replay as gzipped gob
// frames. Each frame holds one serialized snapshot.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)
	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, state := range r.States {
		frame, err := state.SerializeToBytes()
		if err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
		if err := encoder.Encode(frame); err != nil {
			return fmt.Errorf("failed to write state %d: %w", i, err)
		}
	}

	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.StateCount; i++ {
		var frame []byte
		if err := decoder.Decode(&frame); err != nil {
			return nil, fmt.Errorf("failed to read state %d: %w", i, err)
		}
		state, err := DeserializeFromBytes(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, state)
	}

	return replay, nil
}

// ReplayRecorder keeps replays for running matches.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewReplayRecorder creates a recorder that saves finished replays under saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// RecordState appends state to the game's replay, starting one if needed.
func (rr *ReplayRecorder) RecordState(gameID string, state *GameState) {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	if !ok {
		replay = NewReplay(gameID)
		rr.replays[gameID] = replay
	}
	rr.mu.Unlock()

	replay.RecordState(state)

	if rr.logger != nil {
		rr.logger.Debug("recorded replay state",
			zap.String("game_id", gameID),
			zap.Int("state_count", replay.Size()),
		)
	}
}

// GetReplay returns the in-memory replay for a game.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[gameID]
	return replay, exists
}

// SaveReplay writes a replay to disk and forgets it.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[gameID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("game_id", gameID),
			zap.Int("state_count", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// LoadReplay reads a saved replay from disk.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, gameID)
}
