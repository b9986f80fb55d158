package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/shared"
)

func validDraft() CardDraft {
	return CardDraft{
		Name:        " Rem ",
		Anime:       "Re:Zero",
		Rarity:      RarityElegantRose,
		Event:       "Maid",
		MediaType:   MediaTypePhoto,
		MediaFileID: "AgACAgUAAxk",
	}
}

func TestNewCardDefinition(t *testing.T) {
	t.Run("valid draft", func(t *testing.T) {
		c, err := NewCardDefinition(validDraft())
		require.NoError(t, err)
		assert.Equal(t, "Rem", c.Name)
		assert.Equal(t, int64(300000), c.MarketPrice(150000))
	})

	cases := map[string]func(d *CardDraft){
		"missing name":    func(d *CardDraft) { d.Name = "  " },
		"missing anime":   func(d *CardDraft) { d.Anime = "" },
		"bad media type":  func(d *CardDraft) { d.MediaType = "gif" },
		"missing file id": func(d *CardDraft) { d.MediaFileID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := validDraft()
			mutate(&d)
			_, err := NewCardDefinition(d)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}

	t.Run("invalid rarity", func(t *testing.T) {
		d := validDraft()
		d.Rarity = 0
		_, err := NewCardDefinition(d)
		assert.True(t, errors.Is(err, ErrUnknownRarity))
	})
}

func TestCardDraft_JSONUsesRarityNames(t *testing.T) {
	raw, err := json.Marshal(validDraft())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rarity":"Elegant Rose"`)

	var d CardDraft
	require.NoError(t, json.Unmarshal([]byte(`{"rarity":"cinematic legend"}`), &d))
	assert.Equal(t, RarityCinematicLegend, d.Rarity)
}
