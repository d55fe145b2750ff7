package rules

import "fmt"

// Default settings used when a match is created without overrides.
const (
	DefaultStartingCoins = 2
	DefaultMaxPlayers    = 6
	MinPlayers           = 2
)

// Expansions toggles optional rule variants.
type Expansions struct {
	Reformation bool `json:"reformation" mapstructure:"reformation"`
	Inquisitor  bool `json:"inquisitor" mapstructure:"inquisitor"`
	Anarchy     bool `json:"anarchy" mapstructure:"anarchy"`
}

// Settings configures a single match.
type Settings struct {
	Expansions    Expansions `json:"expansions" mapstructure:"expansions"`
	StartingCoins int        `json:"starting_coins" mapstructure:"starting_coins"`
	MaxPlayers    int        `json:"max_players" mapstructure:"max_players"`
}

// DefaultSettings returns the base game without expansions.
func DefaultSettings() Settings {
	return Settings{
		StartingCoins: DefaultStartingCoins,
		MaxPlayers:    DefaultMaxPlayers,
	}
}

// Validate checks that the settings describe a playable match for playerCount players.
func (s Settings) Validate(playerCount int) error {
	if s.StartingCoins < 0 {
		return fmt.Errorf("starting coins must not be negative, got %d", s.StartingCoins)
	}
	if s.MaxPlayers < MinPlayers {
		return fmt.Errorf("max players must be at least %d, got %d", MinPlayers, s.MaxPlayers)
	}
	if playerCount < MinPlayers {
		return fmt.Errorf("need at least %d players, got %d", MinPlayers, playerCount)
	}
	if playerCount > s.MaxPlayers {
		return fmt.Errorf("too many players: %d (max %d)", playerCount, s.MaxPlayers)
	}
	// Every player holds two cards and the deck must still cover an exchange draw.
	if need := playerCount*2 + 2; need > DeckSize(s) {
		return fmt.Errorf("deck of %d cards cannot seat %d players", DeckSize(s), playerCount)
	}
	return nil
}
