package game

import "github.com/coupline/coup-server-go/internal/game/rules"

// Outcome is the result of a game over check.
type Outcome struct {
	Over bool `json:"over"`
	// WinnerID is the sole survivor, or a representative of the winning team.
	WinnerID string `json:"winner_id,omitempty"`
	// WinningTeam lists every surviving member of the winning side.
	WinningTeam []string         `json:"winning_team,omitempty"`
	Allegiance  rules.Allegiance `json:"allegiance,omitempty"`
}

// EvaluateGameOver reports whether one player, or one Reformation faction,
// is all that remains.
func EvaluateGameOver(players []Player) Outcome {
	active := make([]*Player, 0, len(players))
	for i := range players {
		if !players[i].Eliminated {
			active = append(active, &players[i])
		}
	}

	switch {
	case len(active) == 0:
		return Outcome{}
	case len(active) == 1:
		return Outcome{
			Over:        true,
			WinnerID:    active[0].ID,
			WinningTeam: []string{active[0].ID},
			Allegiance:  active[0].Allegiance,
		}
	}

	allegiance := active[0].Allegiance
	if allegiance == rules.AllegianceNone {
		return Outcome{}
	}
	team := make([]string, 0, len(active))
	for _, p := range active {
		if p.Allegiance != allegiance {
			return Outcome{}
		}
		team = append(team, p.ID)
	}
	return Outcome{
		Over:        true,
		WinnerID:    team[0],
		WinningTeam: team,
		Allegiance:  allegiance,
	}
}
