package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const createGamesTable = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	state      JSONB NOT NULL,
	checksum   TEXT NOT NULL,
	version    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// querier is the subset of *pgxpool.Pool used by GameRepository.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GameRepository stores one row per match: the latest snapshot as JSONB, its
// checksum and a version that increases with every save.
type GameRepository struct {
	db     querier
	logger *zap.Logger
}

// NewGameRepository creates a repository backed by db.
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db.pool, logger: db.logger}
}

// Migrate creates the games table if needed.
func (r *GameRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createGamesTable); err != nil {
		return fmt.Errorf("failed to create games table: %w", err)
	}
	return nil
}

type snapshot struct {
	data     []byte
	checksum string
}

func encode(state *game.GameState) (snapshot, error) {
	data, err := state.SerializeToBytes()
	if err != nil {
		return snapshot{}, err
	}
	sum, err := state.ComputeChecksum()
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{data: data, checksum: sum.Hash}, nil
}

func decode(data []byte, checksum string) (*game.GameState, error) {
	state, err := game.DeserializeFromBytes(data)
	if err != nil {
		return nil, err
	}
	ok, err := state.VerifyChecksum(&game.SerializationChecksum{Hash: checksum, Version: game.ChecksumVersion})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCorruptSnapshot
	}
	return state, nil
}

// Create inserts a new match at version 1.
func (r *GameRepository) Create(ctx context.Context, id string, state *game.GameState) (int64, error) {
	snap, err := encode(state)
	if err != nil {
		return 0, fmt.Errorf("failed to encode game %s: %w", id, err)
	}

	tag, err := r.db.Exec(ctx,
		`INSERT INTO games (id, status, state, checksum, version)
		 VALUES ($1, $2, $3, $4, 1)
		 ON CONFLICT (id) DO NOTHING`,
		id, string(state.Status), snap.data, snap.checksum,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert game %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrGameExists
	}
	return 1, nil
}

// Load returns the latest snapshot and its version.
func (r *GameRepository) Load(ctx context.Context, id string) (*game.GameState, int64, error) {
	var (
		data     []byte
		checksum string
		version  int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT state, checksum, version FROM games WHERE id = $1`, id,
	).Scan(&data, &checksum, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrGameNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load game %s: %w", id, err)
	}

	state, err := decode(data, checksum)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("unreadable game snapshot", zap.String("game_id", id), zap.Error(err))
		}
		return nil, 0, fmt.Errorf("failed to decode game %s: %w", id, err)
	}
	return state, version, nil
}

// Save replaces the snapshot if it is still at expectedVersion and returns
// the new version.
func (r *GameRepository) Save(ctx context.Context, id string, state *game.GameState, expectedVersion int64) (int64, error) {
	snap, err := encode(state)
	if err != nil {
		return 0, fmt.Errorf("failed to encode game %s: %w", id, err)
	}

	var version int64
	err = r.db.QueryRow(ctx,
		`UPDATE games
		    SET status = $3, state = $4, checksum = $5, version = version + 1, updated_at = now()
		  WHERE id = $1 AND version = $2
		  RETURNING version`,
		id, expectedVersion, string(state.Status), snap.data, snap.checksum,
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to save game %s: %w", id, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check game %s: %w", id, err)
	}
	if !exists {
		return 0, ErrGameNotFound
	}
	if r.logger != nil {
		r.logger.Warn("stale game save rejected",
			zap.String("game_id", id),
			zap.Int64("expected_version", expectedVersion),
		)
	}
	return 0, ErrVersionConflict
}
