package game

import (
	"github.com/coupline/coup-server-go/internal/game/rules"
)

// HandSize is the number of influence cards every player holds for the whole match.
const HandSize = 2

// Status is the lifecycle stage of a match.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Card is one influence card in a player's hand. Lost influence stays in the
// hand face up.
type Card struct {
	Character rules.CharacterType `json:"character"`
	Revealed  bool                `json:"revealed"`
}

// Player is a seat in the match.
type Player struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Coins       int              `json:"coins"`
	Hand        [HandSize]Card   `json:"hand"`
	Eliminated  bool             `json:"eliminated"`
	Allegiance  rules.Allegiance `json:"allegiance,omitempty"`
}

// UnrevealedCount returns the player's remaining influence.
func (p *Player) UnrevealedCount() int {
	n := 0
	for _, c := range p.Hand {
		if !c.Revealed {
			n++
		}
	}
	return n
}

// UnrevealedCharacters returns the characters of unrevealed cards in slot order.
func (p *Player) UnrevealedCharacters() []rules.CharacterType {
	out := make([]rules.CharacterType, 0, HandSize)
	for _, c := range p.Hand {
		if !c.Revealed {
			out = append(out, c.Character)
		}
	}
	return out
}

// findUnrevealed returns the slot of the first unrevealed card matching any of
// the given characters, or -1.
func (p *Player) findUnrevealed(characters []rules.CharacterType) int {
	for i, c := range p.Hand {
		if c.Revealed {
			continue
		}
		for _, want := range characters {
			if c.Character == want {
				return i
			}
		}
	}
	return -1
}

// loseInfluence reveals the first unrevealed card by index and eliminates the
// player once both cards are face up. It returns the revealed character.
func (p *Player) loseInfluence() (rules.CharacterType, bool) {
	for i := range p.Hand {
		if !p.Hand[i].Revealed {
			p.Hand[i].Revealed = true
			if p.UnrevealedCount() == 0 {
				p.Eliminated = true
			}
			return p.Hand[i].Character, true
		}
	}
	p.Eliminated = true
	return "", false
}

func (p *Player) info() rules.PlayerInfo {
	return rules.PlayerInfo{
		PlayerID:   p.ID,
		Coins:      p.Coins,
		Eliminated: p.Eliminated,
		Allegiance: p.Allegiance,
	}
}

// ActionResult describes how far the logged action got.
type ActionResult string

const (
	ResultPending    ActionResult = "PENDING"
	ResultResolved   ActionResult = "RESOLVED"
	ResultChallenged ActionResult = "CHALLENGED"
	ResultBlocked    ActionResult = "BLOCKED"
	ResultCancelled  ActionResult = "CANCELLED"
)

// ChallengeResult records the outcome of the most recent challenge.
type ChallengeResult string

const (
	ChallengeNone      ChallengeResult = ""
	ChallengeFailed    ChallengeResult = "FAILED"
	ChallengeSucceeded ChallengeResult = "SUCCEEDED"
)

// ActionLog is the record of the last action, shown to every client.
type ActionLog struct {
	ActorID         string              `json:"actor_id,omitempty"`
	Action          rules.ActionType    `json:"action,omitempty"`
	TargetID        string              `json:"target_id,omitempty"`
	BlockerID       string              `json:"blocker_id,omitempty"`
	BlockClaim      rules.CharacterType `json:"block_claim,omitempty"`
	ChallengerID    string              `json:"challenger_id,omitempty"`
	Result          ActionResult        `json:"result,omitempty"`
	ChallengeResult ChallengeResult     `json:"challenge_result,omitempty"`
	// LostCharacters lists cards revealed while resolving this action, keyed by player id.
	LostCharacters map[string][]rules.CharacterType `json:"lost_characters,omitempty"`
	// Peeked is the card seen by an Interrogate. Only the actor should be shown it.
	Peeked rules.CharacterType `json:"peeked,omitempty"`
	// Stolen is the number of coins moved by a Steal.
	Stolen int `json:"stolen,omitempty"`
}

func (l ActionLog) clone() ActionLog {
	if l.LostCharacters != nil {
		lost := make(map[string][]rules.CharacterType, len(l.LostCharacters))
		for id, cards := range l.LostCharacters {
			lost[id] = append([]rules.CharacterType(nil), cards...)
		}
		l.LostCharacters = lost
	}
	return l
}

func (l *ActionLog) recordLoss(playerID string, c rules.CharacterType) {
	if c == "" {
		return
	}
	if l.LostCharacters == nil {
		l.LostCharacters = make(map[string][]rules.CharacterType)
	}
	l.LostCharacters[playerID] = append(l.LostCharacters[playerID], c)
}

// GameState is an immutable snapshot of a match. Engine operations return a
// new snapshot and never modify the one they were given.
type GameState struct {
	Status             Status                `json:"status"`
	Settings           rules.Settings        `json:"settings"`
	Deck               []rules.CharacterType `json:"deck"`
	CurrentPlayerIndex int                   `json:"current_player_index"`
	Players            []Player              `json:"players"`
	Pending            Pending               `json:"-"`
	LastAction         ActionLog             `json:"last_action"`
	WinnerID           string                `json:"winner_id,omitempty"`
	WinningTeam        []string              `json:"winning_team,omitempty"`
	Treasury           int                   `json:"treasury"`
	Turn               int                   `json:"turn"`
}

// Clone returns a deep structural copy that shares no mutable memory with s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Deck = append([]rules.CharacterType(nil), s.Deck...)
	out.Players = append([]Player(nil), s.Players...)
	out.WinningTeam = append([]string(nil), s.WinningTeam...)
	if s.Pending != nil {
		out.Pending = s.Pending.clonePending()
	}
	out.LastAction = s.LastAction.clone()
	return &out
}

// Player returns a copy of the player with the given id.
func (s *GameState) Player(id string) (Player, bool) {
	idx := s.playerIndex(id)
	if idx < 0 {
		return Player{}, false
	}
	return s.Players[idx], true
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() (Player, bool) {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// ActivePlayers implements rules.RosterAccessor.
func (s *GameState) ActivePlayers() []rules.PlayerInfo {
	out := make([]rules.PlayerInfo, 0, len(s.Players))
	for i := range s.Players {
		if !s.Players[i].Eliminated {
			out = append(out, s.Players[i].info())
		}
	}
	return out
}

// CardsInPlay counts every card in the deck, in hands (revealed or not) and
// drawn for an exchange that has not been completed.
func (s *GameState) CardsInPlay() int {
	return len(s.Deck) + len(s.Players)*HandSize + len(s.drawnForExchange())
}

// drawnForExchange returns the cards taken from the deck by a pending exchange.
func (s *GameState) drawnForExchange() []rules.CharacterType {
	p, ok := s.Pending.(*AwaitingExchangeSelection)
	if !ok || len(p.Pool) < p.Keep {
		return nil
	}
	return p.Pool[:len(p.Pool)-p.Keep]
}

func (s *GameState) playerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}
