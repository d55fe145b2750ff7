package repository

import "errors"

var (
	// ErrGameNotFound is returned when no snapshot exists for an id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists is returned when creating a game whose id is taken.
	ErrGameExists = errors.New("game already exists")
	// ErrVersionConflict is returned when a save was based on a stale snapshot.
	ErrVersionConflict = errors.New("game was modified concurrently")
	// ErrCorruptSnapshot is returned when a stored snapshot fails its checksum.
	ErrCorruptSnapshot = errors.New("stored game snapshot is corrupt")
)
