package rules

import "fmt"

// Validator checks whether an action may be declared before it is attempted.
type Validator struct {
	settings Settings
	roster   RosterAccessor
}

// RosterAccessor exposes the players of a match to the validator.
type RosterAccessor interface {
	// ActivePlayers returns every player who has not been eliminated.
	ActivePlayers() []PlayerInfo
}

// PlayerInfo provides information about a player for action checks.
type PlayerInfo struct {
	PlayerID   string
	Coins      int
	Eliminated bool
	Allegiance Allegiance
}

// Decision is the outcome of a legality check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// NewValidator creates a validator for one ruleset. roster may be nil, in
// which case Reformation targeting restrictions are not enforced.
func NewValidator(settings Settings, roster RosterAccessor) *Validator {
	return &Validator{
		settings: settings,
		roster:   roster,
	}
}

// CanPerformAction checks, in order: cost, mandatory coup, missing target,
// eliminated target, self-targeting, then Reformation faction restrictions.
// It never mutates anything.
func (v *Validator) CanPerformAction(actor PlayerInfo, action ActionType, target *PlayerInfo) Decision {
	rule, ok := Lookup(action)
	if !ok || (v != nil && !Available(action, v.settings)) {
		return deny("Action %s is not available in this game", action)
	}

	if actor.Coins < rule.Cost {
		return deny("Not enough coins. Needed: %d, Have: %d", rule.Cost, actor.Coins)
	}

	if actor.Coins >= MandatoryCoupCoins && action != ActionCoup {
		return deny("You have %d coins and must Coup", actor.Coins)
	}

	if !rule.NeedsTarget {
		return allow()
	}

	if target == nil || target.PlayerID == "" {
		return deny("Action %s requires a target", action)
	}

	if target.Eliminated {
		return deny("Target %s has been eliminated", target.PlayerID)
	}

	if target.PlayerID == actor.PlayerID {
		return deny("You cannot target yourself with %s", action)
	}

	if v != nil && rule.Hostile {
		if decision := v.checkFaction(actor, *target); !decision.Allowed {
			return decision
		}
	}

	return allow()
}

// checkFaction rejects hostile actions against a teammate while an opponent
// from the other faction is still in the game.
func (v *Validator) checkFaction(actor, target PlayerInfo) Decision {
	if !v.settings.Expansions.Reformation || v.roster == nil {
		return allow()
	}
	if actor.Allegiance == AllegianceNone || actor.Allegiance != target.Allegiance {
		return allow()
	}
	for _, p := range v.roster.ActivePlayers() {
		if p.PlayerID == actor.PlayerID || p.Eliminated {
			continue
		}
		if p.Allegiance != actor.Allegiance {
			return deny("You cannot target %s, who shares your allegiance", target.PlayerID)
		}
	}
	return allow()
}
