// Package deck manages the court deck of influence cards.
package deck

import (
	"fmt"
	"math/rand/v2"

	"github.com/coupline/coup-server-go/internal/game/rules"
)

// Deck is the draw pile. The draw end is the end of the slice.
type Deck struct {
	cards []rules.CharacterType
	rng   *rand.Rand
}

// New builds the full deck for the given settings and shuffles it.
func New(settings rules.Settings, rng *rand.Rand) *Deck {
	characters := rules.Characters(settings)
	cards := make([]rules.CharacterType, 0, len(characters)*rules.CopiesPerCharacter)
	for _, c := range characters {
		for i := 0; i < rules.CopiesPerCharacter; i++ {
			cards = append(cards, c)
		}
	}
	d := &Deck{cards: cards, rng: rng}
	d.Shuffle()
	return d
}

// FromCards wraps an existing pile without shuffling it. The slice is copied.
func FromCards(cards []rules.CharacterType, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]rules.CharacterType, len(cards)), rng: rng}
	copy(d.cards, cards)
	return d
}

// Shuffle reorders the whole pile with an unbiased Fisher-Yates shuffle.
func (d *Deck) Shuffle() {
	if d.rng == nil {
		rand.Shuffle(len(d.cards), d.swap)
		return
	}
	d.rng.Shuffle(len(d.cards), d.swap)
}

func (d *Deck) swap(i, j int) {
	d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
}

// Draw removes n cards from the draw end.
func (d *Deck) Draw(n int) ([]rules.CharacterType, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot draw %d cards", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("cannot draw %d cards from a deck of %d", n, len(d.cards))
	}
	split := len(d.cards) - n
	drawn := make([]rules.CharacterType, n)
	copy(drawn, d.cards[split:])
	d.cards = d.cards[:split]
	return drawn, nil
}

// ReturnAndReshuffle puts cards back and reshuffles the entire pile so the
// returned cards' positions cannot be tracked.
func (d *Deck) ReturnAndReshuffle(cards []rules.CharacterType) {
	d.cards = append(d.cards, cards...)
	d.Shuffle()
}

// Len returns the number of cards remaining.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the pile in draw order (last element is drawn first).
func (d *Deck) Cards() []rules.CharacterType {
	out := make([]rules.CharacterType, len(d.cards))
	copy(out, d.cards)
	return out
}

// Count returns how many copies of a character remain in the pile.
func (d *Deck) Count(c rules.CharacterType) int {
	n := 0
	for _, card := range d.cards {
		if card == c {
			n++
		}
	}
	return n
}
