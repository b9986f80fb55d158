package ledger

import (
	"strings"
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// Media types accepted for card artwork
const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
)

// CardDefinition is a catalog entry. Cards are immutable once registered.
type CardDefinition struct {
	ID          int64
	Name        string
	Anime       string
	Rarity      Rarity
	Event       string
	MediaType   string
	MediaFileID string
	CreatedAt   time.Time
}

// CardDraft is an unregistered card awaiting confirmation
type CardDraft struct {
	Name        string `json:"name"`
	Anime       string `json:"anime"`
	Rarity      Rarity `json:"rarity"`
	Event       string `json:"event"`
	MediaType   string `json:"media_type"`
	MediaFileID string `json:"media_file_id"`
}

// Validate checks the draft can become a card
func (d CardDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return shared.ErrInvalidInput.WithMessage("card name is required")
	}
	if strings.TrimSpace(d.Anime) == "" {
		return shared.ErrInvalidInput.WithMessage("card anime is required")
	}
	if !d.Rarity.IsValid() {
		return ErrUnknownRarity
	}
	switch d.MediaType {
	case MediaTypePhoto, MediaTypeVideo:
	default:
		return shared.ErrInvalidInput.WithMessage("media type must be photo or video")
	}
	if d.MediaFileID == "" {
		return shared.ErrInvalidInput.WithMessage("media file id is required")
	}
	return nil
}

// NewCardDefinition builds a card from a validated draft
func NewCardDefinition(d CardDraft) (*CardDefinition, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &CardDefinition{
		Name:        strings.TrimSpace(d.Name),
		Anime:       strings.TrimSpace(d.Anime),
		Rarity:      d.Rarity,
		Event:       strings.TrimSpace(d.Event),
		MediaType:   d.MediaType,
		MediaFileID: d.MediaFileID,
		CreatedAt:   time.Now(),
	}, nil
}

// MarketPrice returns the marketplace price of the card
func (c *CardDefinition) MarketPrice(base int64) int64 {
	return c.Rarity.MarketPrice(base)
}
