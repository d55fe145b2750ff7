package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/coupline/coup-server-go/internal/match"
)

// GameView is the part of a match one client is allowed to see. Unrevealed
// cards of other players, the deck order and private exchange or
// interrogation results are withheld.
type GameView struct {
	GameID  string `json:"game_id"`
	Version int64  `json:"version"`
	// Checksum covers this view only, never the hidden parts of the match.
	Checksum        string         `json:"checksum"`
	Deadline        *time.Time     `json:"deadline,omitempty"`
	Viewer          string         `json:"viewer,omitempty"`
	Status          game.Status    `json:"status"`
	Turn            int            `json:"turn"`
	CurrentPlayerID string         `json:"current_player_id"`
	Players         []SeatView     `json:"players"`
	DeckSize        int            `json:"deck_size"`
	Treasury        int            `json:"treasury"`
	Pending         *PendingView   `json:"pending,omitempty"`
	LastAction      game.ActionLog `json:"last_action"`
	WinnerID        string         `json:"winner_id,omitempty"`
	WinningTeam     []string       `json:"winning_team,omitempty"`
}

// SeatView is one player as seen by the viewer.
type SeatView struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Coins       int              `json:"coins"`
	Eliminated  bool             `json:"eliminated"`
	Allegiance  rules.Allegiance `json:"allegiance,omitempty"`
	Cards       []CardView       `json:"cards"`
}

// CardView is one influence card slot.
type CardView struct {
	// Character is empty for a face down card the viewer does not own.
	Character rules.CharacterType `json:"character,omitempty"`
	Revealed  bool                `json:"revealed"`
}

// PendingView describes the open interaction. The exchange pool is only set
// for the exchanging player.
type PendingView struct {
	Kind        game.PendingKind      `json:"kind"`
	ActorID     string                `json:"actor_id"`
	Action      rules.ActionType      `json:"action,omitempty"`
	TargetID    string                `json:"target_id,omitempty"`
	BlockerID   string                `json:"blocker_id,omitempty"`
	ClaimedCard rules.CharacterType   `json:"claimed_card,omitempty"`
	Challenged  bool                  `json:"challenged,omitempty"`
	Keep        int                   `json:"keep,omitempty"`
	Pool        []rules.CharacterType `json:"pool,omitempty"`
}

// NewGameView renders snap for viewer. An empty viewer is a spectator.
func NewGameView(snap *match.Snapshot, viewer string) *GameView {
	s := snap.State
	v := &GameView{
		GameID:      snap.GameID,
		Version:     snap.Version,
		Deadline:    snap.Deadline,
		Viewer:      viewer,
		Status:      s.Status,
		Turn:        s.Turn,
		DeckSize:    len(s.Deck),
		Treasury:    s.Treasury,
		LastAction:  s.LastAction,
		WinnerID:    s.WinnerID,
		WinningTeam: s.WinningTeam,
	}
	if current, ok := s.CurrentPlayer(); ok {
		v.CurrentPlayerID = current.ID
	}
	if v.LastAction.ActorID != viewer {
		v.LastAction.Peeked = ""
	}

	for _, p := range s.Players {
		seat := SeatView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Coins:       p.Coins,
			Eliminated:  p.Eliminated,
			Allegiance:  p.Allegiance,
			Cards:       make([]CardView, 0, len(p.Hand)),
		}
		for _, c := range p.Hand {
			card := CardView{Revealed: c.Revealed}
			if c.Revealed || p.ID == viewer || s.Status == game.StatusCompleted {
				card.Character = c.Character
			}
			seat.Cards = append(seat.Cards, card)
		}
		v.Players = append(v.Players, seat)
	}

	switch p := s.Pending.(type) {
	case *game.AwaitingChallenge:
		v.Pending = &PendingView{
			Kind:       p.Kind(),
			ActorID:    p.ActorID,
			Action:     p.Action,
			TargetID:   p.TargetID,
			Challenged: p.Challenged,
		}
	case *game.AwaitingBlock:
		v.Pending = &PendingView{
			Kind:        p.Kind(),
			ActorID:     p.ActorID,
			Action:      p.Action,
			TargetID:    p.TargetID,
			BlockerID:   p.BlockerID,
			ClaimedCard: p.ClaimedCard,
		}
	case *game.AwaitingExchangeSelection:
		v.Pending = &PendingView{
			Kind:    p.Kind(),
			ActorID: p.PlayerID,
			Action:  rules.ActionExchange,
			Keep:    p.Keep,
		}
		if p.PlayerID == viewer {
			v.Pending.Pool = append([]rules.CharacterType(nil), p.Pool...)
		}
	}
	v.Checksum = v.checksum()
	return v
}

// checksum hashes the JSON rendering of the view with the checksum unset.
func (v *GameView) checksum() string {
	c := *v
	c.Checksum = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
