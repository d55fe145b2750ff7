package game

import (
	"encoding/json"
	"fmt"

	"github.com/coupline/coup-server-go/internal/game/rules"
)

// PendingKind names a variant of Pending.
type PendingKind string

const (
	PendingNone              PendingKind = ""
	PendingChallenge         PendingKind = "AWAITING_CHALLENGE"
	PendingBlock             PendingKind = "AWAITING_BLOCK"
	PendingExchangeSelection PendingKind = "AWAITING_EXCHANGE_SELECTION"
)

// Pending is the interaction a match is waiting on. A nil Pending means the
// current player may declare an action. The set of variants is closed:
// *AwaitingChallenge, *AwaitingBlock and *AwaitingExchangeSelection.
type Pending interface {
	Kind() PendingKind
	clonePending() Pending
}

// AwaitingChallenge is the response window after an action with a claim or a
// possible block has been declared. No effect has been applied yet; only the
// cost has been paid.
type AwaitingChallenge struct {
	ActorID  string           `json:"actor_id"`
	Action   rules.ActionType `json:"action"`
	TargetID string           `json:"target_id,omitempty"`
	PaidCost int              `json:"paid_cost"`
	// Challenged is set once the action's claim survived a challenge; only a
	// block can follow.
	Challenged bool `json:"challenged"`
}

// Kind implements Pending.
func (p *AwaitingChallenge) Kind() PendingKind { return PendingChallenge }

func (p *AwaitingChallenge) clonePending() Pending {
	cp := *p
	return &cp
}

// AwaitingBlock holds a block that may still be challenged. Blocks cannot
// themselves be blocked.
type AwaitingBlock struct {
	ActorID     string              `json:"actor_id"`
	Action      rules.ActionType    `json:"action"`
	TargetID    string              `json:"target_id,omitempty"`
	PaidCost    int                 `json:"paid_cost"`
	BlockerID   string              `json:"blocker_id"`
	ClaimedCard rules.CharacterType `json:"claimed_card"`
}

// Kind implements Pending.
func (p *AwaitingBlock) Kind() PendingKind { return PendingBlock }

func (p *AwaitingBlock) clonePending() Pending {
	cp := *p
	return &cp
}

// AwaitingExchangeSelection waits for the exchanging player to choose which
// characters to keep from Pool.
type AwaitingExchangeSelection struct {
	PlayerID string                `json:"player_id"`
	Pool     []rules.CharacterType `json:"pool"`
	Keep     int                   `json:"keep"`
}

// Kind implements Pending.
func (p *AwaitingExchangeSelection) Kind() PendingKind { return PendingExchangeSelection }

func (p *AwaitingExchangeSelection) clonePending() Pending {
	cp := *p
	cp.Pool = append([]rules.CharacterType(nil), p.Pool...)
	return &cp
}

// PendingKindOf returns the kind of p, treating nil as PendingNone.
func PendingKindOf(p Pending) PendingKind {
	if p == nil {
		return PendingNone
	}
	return p.Kind()
}

type pendingEnvelope struct {
	Kind PendingKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type gameStateAlias GameState

type gameStateJSON struct {
	*gameStateAlias
	Pending *pendingEnvelope `json:"pending,omitempty"`
}

// MarshalJSON encodes the pending interaction as a tagged envelope.
func (s GameState) MarshalJSON() ([]byte, error) {
	alias := gameStateAlias(s)
	out := gameStateJSON{gameStateAlias: &alias}
	if s.Pending != nil {
		data, err := json.Marshal(s.Pending)
		if err != nil {
			return nil, fmt.Errorf("encode pending interaction: %w", err)
		}
		out.Pending = &pendingEnvelope{Kind: s.Pending.Kind(), Data: data}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a state written by MarshalJSON.
func (s *GameState) UnmarshalJSON(data []byte) error {
	in := gameStateJSON{gameStateAlias: (*gameStateAlias)(s)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Pending = nil
	if in.Pending == nil || in.Pending.Kind == PendingNone {
		return nil
	}

	var target Pending
	switch in.Pending.Kind {
	case PendingChallenge:
		target = &AwaitingChallenge{}
	case PendingBlock:
		target = &AwaitingBlock{}
	case PendingExchangeSelection:
		target = &AwaitingExchangeSelection{}
	default:
		return fmt.Errorf("unknown pending interaction %q", in.Pending.Kind)
	}
	if err := json.Unmarshal(in.Pending.Data, target); err != nil {
		return fmt.Errorf("decode pending interaction: %w", err)
	}
	s.Pending = target
	return nil
}
