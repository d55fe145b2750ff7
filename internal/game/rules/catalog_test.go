package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inquisitorSettings() Settings {
	s := DefaultSettings()
	s.Expansions.Inquisitor = true
	return s
}

func TestActionTable(t *testing.T) {
	tests := []struct {
		action      ActionType
		cost        int
		needsTarget bool
		claims      []CharacterType
		blockedBy   []CharacterType
	}{
		{ActionIncome, 0, false, nil, nil},
		{ActionForeignAid, 0, false, nil, []CharacterType{CharacterDuke}},
		{ActionTax, 0, false, []CharacterType{CharacterDuke}, nil},
		{ActionSteal, 0, true, []CharacterType{CharacterCaptain}, []CharacterType{CharacterAmbassador, CharacterCaptain}},
		{ActionAssassinate, 3, true, []CharacterType{CharacterAssassin}, []CharacterType{CharacterContessa}},
		{ActionExchange, 0, false, []CharacterType{CharacterAmbassador}, nil},
		{ActionCoup, 7, true, nil, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			rule, ok := Lookup(tt.action)
			require.True(t, ok)
			assert.Equal(t, tt.cost, rule.Cost)
			assert.Equal(t, tt.needsTarget, rule.NeedsTarget)
			assert.ElementsMatch(t, tt.claims, rule.Claims)
			assert.ElementsMatch(t, tt.blockedBy, rule.BlockedBy)
		})
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	rule, ok := Lookup(ActionSteal)
	require.True(t, ok)
	rule.BlockedBy[0] = CharacterDuke

	again, _ := Lookup(ActionSteal)
	assert.NotContains(t, again.BlockedBy, CharacterDuke)

	_, ok = Lookup("FLY")
	assert.False(t, ok)
}

func TestParseActionType(t *testing.T) {
	tests := map[string]ActionType{
		"income":      ActionIncome,
		"Foreign Aid": ActionForeignAid,
		"foreign-aid": ActionForeignAid,
		" TAX ":       ActionTax,
		"question":    ActionInterrogate,
		"interrogate": ActionInterrogate,
	}
	for input, want := range tests {
		got, err := ParseActionType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseActionType("bribe")
	assert.Error(t, err)
}

func TestParseCharacterType(t *testing.T) {
	c, err := ParseCharacterType(" duke ")
	require.NoError(t, err)
	assert.Equal(t, CharacterDuke, c)

	_, err = ParseCharacterType("jester")
	assert.Error(t, err)
}

func TestExpansionAvailability(t *testing.T) {
	base := DefaultSettings()
	assert.False(t, Available(ActionInterrogate, base))
	assert.False(t, Available(ActionConvert, base))
	assert.True(t, Available(ActionTax, base))
	assert.False(t, Available("FLY", base))

	reformation := DefaultSettings()
	reformation.Expansions.Reformation = true
	assert.True(t, Available(ActionConvert, reformation))

	assert.True(t, Available(ActionInterrogate, inquisitorSettings()))
}

func TestInquisitorReplacesAmbassador(t *testing.T) {
	settings := inquisitorSettings()

	assert.Equal(t, []CharacterType{CharacterInquisitor}, ClaimsFor(ActionExchange, settings))
	assert.Equal(t, []CharacterType{CharacterAmbassador}, ClaimsFor(ActionExchange, DefaultSettings()))

	assert.True(t, CanBlock(ActionSteal, CharacterInquisitor, settings))
	assert.False(t, CanBlock(ActionSteal, CharacterInquisitor, DefaultSettings()))

	assert.Contains(t, Characters(settings), CharacterInquisitor)
	assert.NotContains(t, Characters(settings), CharacterAmbassador)
	assert.Equal(t, 15, DeckSize(settings))
}

func TestOpensResponseWindow(t *testing.T) {
	settings := DefaultSettings()
	assert.False(t, OpensResponseWindow(ActionIncome, settings))
	assert.False(t, OpensResponseWindow(ActionCoup, settings))
	assert.True(t, OpensResponseWindow(ActionForeignAid, settings))
	assert.True(t, OpensResponseWindow(ActionTax, settings))
	assert.True(t, OpensResponseWindow(ActionExchange, settings))
}

func TestActionsOrder(t *testing.T) {
	actions := Actions()
	require.Len(t, actions, 9)
	assert.Equal(t, ActionIncome, actions[0])
	assert.Equal(t, ActionCoup, actions[len(actions)-1])
}

func TestAllegianceOpposite(t *testing.T) {
	assert.Equal(t, AllegianceReformist, AllegianceLoyalist.Opposite())
	assert.Equal(t, AllegianceLoyalist, AllegianceReformist.Opposite())
	assert.Equal(t, AllegianceNone, AllegianceNone.Opposite())
}

func TestSettingsValidate(t *testing.T) {
	settings := DefaultSettings()
	assert.NoError(t, settings.Validate(2))
	assert.NoError(t, settings.Validate(6))
	assert.Error(t, settings.Validate(1))
	assert.Error(t, settings.Validate(7))

	negative := settings
	negative.StartingCoins = -1
	assert.Error(t, negative.Validate(3))

	big := settings
	big.MaxPlayers = 8
	assert.Error(t, big.Validate(7), "15 cards cannot deal 14 and still exchange")
}
