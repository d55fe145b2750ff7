package rules

import (
	"fmt"
	"strings"
)

// CharacterType identifies the character printed on an influence card.
type CharacterType string

const (
	CharacterDuke       CharacterType = "DUKE"
	CharacterAssassin   CharacterType = "ASSASSIN"
	CharacterCaptain    CharacterType = "CAPTAIN"
	CharacterContessa   CharacterType = "CONTESSA"
	CharacterAmbassador CharacterType = "AMBASSADOR"
	CharacterInquisitor CharacterType = "INQUISITOR"
)

// CopiesPerCharacter is the number of cards of each character in a deck.
const CopiesPerCharacter = 3

var allCharacters = []CharacterType{
	CharacterDuke,
	CharacterAssassin,
	CharacterCaptain,
	CharacterContessa,
	CharacterAmbassador,
	CharacterInquisitor,
}

// ParseCharacterType converts a loosely formatted name ("duke", "Duke") into a CharacterType.
func ParseCharacterType(name string) (CharacterType, error) {
	normalized := CharacterType(strings.ToUpper(strings.TrimSpace(name)))
	for _, c := range allCharacters {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown character %q", name)
}

// Characters returns the characters in play for the given settings.
// Ambassador and Inquisitor are mutually exclusive.
func Characters(settings Settings) []CharacterType {
	fifth := CharacterAmbassador
	if settings.Expansions.Inquisitor {
		fifth = CharacterInquisitor
	}
	return []CharacterType{
		CharacterDuke,
		CharacterAssassin,
		CharacterCaptain,
		CharacterContessa,
		fifth,
	}
}

// DeckSize returns the total number of influence cards for the given settings.
func DeckSize(settings Settings) int {
	return len(Characters(settings)) * CopiesPerCharacter
}

// Allegiance is the Reformation team label.
type Allegiance string

const (
	AllegianceNone      Allegiance = ""
	AllegianceLoyalist  Allegiance = "LOYALIST"
	AllegianceReformist Allegiance = "REFORMIST"
)

// Opposite returns the other faction, or AllegianceNone for AllegianceNone.
func (a Allegiance) Opposite() Allegiance {
	switch a {
	case AllegianceLoyalist:
		return AllegianceReformist
	case AllegianceReformist:
		return AllegianceLoyalist
	default:
		return AllegianceNone
	}
}
