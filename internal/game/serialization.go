package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ChecksumVersion is bumped whenever the canonical rendering changes.
const ChecksumVersion = 2

// SerializationChecksum identifies a snapshot so that replays and clients can
// detect divergent state.
type SerializationChecksum struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// ComputeChecksum hashes a canonical rendering of the state.
func (s *GameState) ComputeChecksum() (*SerializationChecksum, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(s.canonical())); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	return &SerializationChecksum{
		Hash:    hex.EncodeToString(hash.Sum(nil)),
		Version: ChecksumVersion,
	}, nil
}

// VerifyChecksum reports whether s still matches expected.
func (s *GameState) VerifyChecksum(expected *SerializationChecksum) (bool, error) {
	if expected == nil {
		return false, fmt.Errorf("no checksum to verify against")
	}
	if expected.Version != ChecksumVersion {
		return false, fmt.Errorf("unsupported checksum version %d", expected.Version)
	}
	computed, err := s.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// canonical renders the state independently of map iteration order.
// Player supplied strings are quoted so that separators inside them cannot
// collide with the layout.
func (s *GameState) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%q|%d\n",
		s.Status, s.CurrentPlayerIndex, s.Turn, s.WinnerID, s.Treasury)
	fmt.Fprintf(&buf, "SETTINGS:%t|%t|%t|%d|%d\n",
		s.Settings.Expansions.Reformation,
		s.Settings.Expansions.Inquisitor,
		s.Settings.Expansions.Anarchy,
		s.Settings.StartingCoins,
		s.Settings.MaxPlayers,
	)

	// Player order matters.
	for _, p := range s.Players {
		fmt.Fprintf(&buf, "PLAYER:%q|%q|%d|%t|%s\n", p.ID, p.DisplayName, p.Coins, p.Eliminated, p.Allegiance)
		for i, c := range p.Hand {
			fmt.Fprintf(&buf, "  CARD:%d|%s|%t\n", i, c.Character, c.Revealed)
		}
	}

	// Deck order matters: it decides the next draw.
	deck := make([]string, len(s.Deck))
	for i, c := range s.Deck {
		deck[i] = string(c)
	}
	buf.WriteString("DECK:")
	buf.WriteString(strings.Join(deck, ","))
	buf.WriteString("\n")

	switch p := s.Pending.(type) {
	case *AwaitingChallenge:
		fmt.Fprintf(&buf, "PENDING:%s|%q|%s|%q|%d|%t\n", p.Kind(), p.ActorID, p.Action, p.TargetID, p.PaidCost, p.Challenged)
	case *AwaitingBlock:
		fmt.Fprintf(&buf, "PENDING:%s|%q|%s|%q|%d|%q|%s\n", p.Kind(), p.ActorID, p.Action, p.TargetID, p.PaidCost, p.BlockerID, p.ClaimedCard)
	case *AwaitingExchangeSelection:
		pool := make([]string, len(p.Pool))
		for i, c := range p.Pool {
			pool[i] = string(c)
		}
		fmt.Fprintf(&buf, "PENDING:%s|%q|%d|%s\n", p.Kind(), p.PlayerID, p.Keep, strings.Join(pool, ","))
	case nil:
		buf.WriteString("PENDING:\n")
	}

	l := s.LastAction
	fmt.Fprintf(&buf, "LAST:%q|%s|%q|%q|%s|%q|%s|%s|%s|%d\n",
		l.ActorID, l.Action, l.TargetID, l.BlockerID, l.BlockClaim,
		l.ChallengerID, l.Result, l.ChallengeResult, l.Peeked, l.Stolen)
	lostIDs := make([]string, 0, len(l.LostCharacters))
	for id := range l.LostCharacters {
		lostIDs = append(lostIDs, id)
	}
	sort.Strings(lostIDs)
	for _, id := range lostIDs {
		for _, c := range l.LostCharacters[id] {
			fmt.Fprintf(&buf, "  LOST:%q|%s\n", id, c)
		}
	}

	fmt.Fprintf(&buf, "TEAM:%q\n", s.WinningTeam)

	return buf.String()
}

// SerializeToBytes encodes the state in the format persisted by the match store.
func (s *GameState) SerializeToBytes() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// DeserializeFromBytes decodes a state produced by SerializeToBytes.
func DeserializeFromBytes(data []byte) (*GameState, error) {
	var state GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// ValidateSerializationRoundtrip checks that a state survives encoding
// without data loss by comparing checksums.
func ValidateSerializationRoundtrip(s *GameState) error {
	original, err := s.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := s.SerializeToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	roundtrip, err := decoded.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if original.Hash != roundtrip.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s", original.Hash, roundtrip.Hash)
	}
	return nil
}
