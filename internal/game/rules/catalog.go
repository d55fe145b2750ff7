package rules

import (
	"fmt"
	"strings"
)

// ActionType is a turn action a player may declare.
type ActionType string

const (
	ActionIncome      ActionType = "INCOME"
	ActionForeignAid  ActionType = "FOREIGN_AID"
	ActionTax         ActionType = "TAX"
	ActionSteal       ActionType = "STEAL"
	ActionAssassinate ActionType = "ASSASSINATE"
	ActionExchange    ActionType = "EXCHANGE"
	ActionInterrogate ActionType = "INTERROGATE"
	ActionConvert     ActionType = "CONVERT"
	ActionCoup        ActionType = "COUP"
)

// MandatoryCoupCoins is the coin count at which Coup becomes the only legal action.
const MandatoryCoupCoins = 10

// ExchangeDrawCount is the number of cards drawn by an exchange.
const ExchangeDrawCount = 2

// ActionRule is one row of the action table.
type ActionRule struct {
	Action      ActionType
	Cost        int
	NeedsTarget bool
	// BlockedBy lists the characters that may block the action in the base game.
	BlockedBy []CharacterType
	// Claims lists the characters whose influence the action asserts.
	Claims []CharacterType
	// Hostile actions may not target a teammate under Reformation.
	Hostile bool
}

// Blockable reports whether any character can block the action in the base game.
func (r ActionRule) Blockable() bool {
	return len(r.BlockedBy) > 0
}

// Challengeable reports whether the action carries a character claim.
func (r ActionRule) Challengeable() bool {
	return len(r.Claims) > 0
}

// actionOrder is the presentation order used when listing actions.
var actionOrder = [...]ActionType{
	ActionIncome,
	ActionForeignAid,
	ActionTax,
	ActionSteal,
	ActionAssassinate,
	ActionExchange,
	ActionInterrogate,
	ActionConvert,
	ActionCoup,
}

var actionTable = map[ActionType]ActionRule{
	ActionIncome: {Action: ActionIncome},
	ActionForeignAid: {
		Action:    ActionForeignAid,
		BlockedBy: []CharacterType{CharacterDuke},
	},
	ActionTax: {
		Action: ActionTax,
		Claims: []CharacterType{CharacterDuke},
	},
	ActionSteal: {
		Action:      ActionSteal,
		NeedsTarget: true,
		BlockedBy:   []CharacterType{CharacterAmbassador, CharacterCaptain},
		Claims:      []CharacterType{CharacterCaptain},
		Hostile:     true,
	},
	ActionAssassinate: {
		Action:      ActionAssassinate,
		Cost:        3,
		NeedsTarget: true,
		BlockedBy:   []CharacterType{CharacterContessa},
		Claims:      []CharacterType{CharacterAssassin},
		Hostile:     true,
	},
	ActionExchange: {
		Action: ActionExchange,
		Claims: []CharacterType{CharacterAmbassador},
	},
	ActionInterrogate: {
		Action:      ActionInterrogate,
		NeedsTarget: true,
		Claims:      []CharacterType{CharacterInquisitor},
		Hostile:     true,
	},
	ActionConvert: {
		Action:      ActionConvert,
		Cost:        1,
		NeedsTarget: true,
	},
	ActionCoup: {
		Action:      ActionCoup,
		Cost:        7,
		NeedsTarget: true,
		Hostile:     true,
	},
}

// ParseActionType converts a client supplied name into an ActionType.
func ParseActionType(name string) (ActionType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "QUESTION" {
		return ActionInterrogate, nil
	}
	if _, ok := actionTable[ActionType(normalized)]; ok {
		return ActionType(normalized), nil
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// Lookup returns the base rule for an action.
func Lookup(action ActionType) (ActionRule, bool) {
	rule, ok := actionTable[action]
	if !ok {
		return ActionRule{}, false
	}
	rule.BlockedBy = append([]CharacterType(nil), rule.BlockedBy...)
	rule.Claims = append([]CharacterType(nil), rule.Claims...)
	return rule, true
}

// Actions returns every action in presentation order.
func Actions() []ActionType {
	out := make([]ActionType, len(actionOrder))
	copy(out, actionOrder[:])
	return out
}

// Available reports whether the action exists under the given expansions.
func Available(action ActionType, settings Settings) bool {
	switch action {
	case ActionInterrogate:
		return settings.Expansions.Inquisitor
	case ActionConvert:
		return settings.Expansions.Reformation
	default:
		_, ok := actionTable[action]
		return ok
	}
}

// ClaimsFor returns the characters an action claims under the given settings.
// With the Inquisitor expansion there are no Ambassadors, so Exchange claims Inquisitor.
func ClaimsFor(action ActionType, settings Settings) []CharacterType {
	rule, ok := Lookup(action)
	if !ok {
		return nil
	}
	if action == ActionExchange && settings.Expansions.Inquisitor {
		return []CharacterType{CharacterInquisitor}
	}
	return rule.Claims
}

// BlockersFor returns the characters that may block an action under the given settings.
func BlockersFor(action ActionType, settings Settings) []CharacterType {
	rule, ok := Lookup(action)
	if !ok {
		return nil
	}
	if action == ActionSteal && settings.Expansions.Inquisitor {
		rule.BlockedBy = append(rule.BlockedBy, CharacterInquisitor)
	}
	return rule.BlockedBy
}

// CanBlock reports whether claiming character blocks action.
func CanBlock(action ActionType, character CharacterType, settings Settings) bool {
	return containsCharacter(BlockersFor(action, settings), character)
}

// OpensResponseWindow reports whether other players get a chance to
// challenge or block before the action takes effect.
func OpensResponseWindow(action ActionType, settings Settings) bool {
	return len(ClaimsFor(action, settings)) > 0 || len(BlockersFor(action, settings)) > 0
}

func containsCharacter(list []CharacterType, c CharacterType) bool {
	for _, candidate := range list {
		if candidate == c {
			return true
		}
	}
	return false
}
