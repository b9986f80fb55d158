package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/waifubot/backend/internal/domain/shared"
)

// Rarity is a card tier. Tiers are ordered from most common (1) to rarest (18).
type Rarity int

const (
	RarityCommonBlossom Rarity = iota + 1
	RarityCharmingGlow
	RarityElegantRose
	RarityRareSparkle
	RarityEnchantedFlame
	RarityAnimatedSpirit
	RarityChromaPulse
	RarityMythicalGrace
	RarityEtherealWhisper
	RarityFrozenAurora
	RarityVoltResonant
	RarityHolographicMirage
	RarityPhantomTempest
	RarityCelestiaBloom
	RarityDivineAscendant
	RarityTimewovenRelic
	RarityForbiddenDesire
	RarityCinematicLegend
)

var rarityNames = [...]string{
	RarityCommonBlossom:     "Common Blossom",
	RarityCharmingGlow:      "Charming Glow",
	RarityElegantRose:       "Elegant Rose",
	RarityRareSparkle:       "Rare Sparkle",
	RarityEnchantedFlame:    "Enchanted Flame",
	RarityAnimatedSpirit:    "Animated Spirit",
	RarityChromaPulse:       "Chroma Pulse",
	RarityMythicalGrace:     "Mythical Grace",
	RarityEtherealWhisper:   "Ethereal Whisper",
	RarityFrozenAurora:      "Frozen Aurora",
	RarityVoltResonant:      "Volt Resonant",
	RarityHolographicMirage: "Holographic Mirage",
	RarityPhantomTempest:    "Phantom Tempest",
	RarityCelestiaBloom:     "Celestia Bloom",
	RarityDivineAscendant:   "Divine Ascendant",
	RarityTimewovenRelic:    "Timewoven Relic",
	RarityForbiddenDesire:   "Forbidden Desire",
	RarityCinematicLegend:   "Cinematic Legend",
}

// Market multipliers. Tiers missing here price at the base.
var rarityMultipliers = map[Rarity]decimal.Decimal{
	RarityCommonBlossom:   decimal.NewFromInt(1),
	RarityCharmingGlow:    decimal.RequireFromString("1.5"),
	RarityElegantRose:     decimal.NewFromInt(2),
	RarityRareSparkle:     decimal.RequireFromString("2.5"),
	RarityEnchantedFlame:  decimal.NewFromInt(3),
	RarityAnimatedSpirit:  decimal.RequireFromString("3.5"),
	RarityChromaPulse:     decimal.NewFromInt(4),
	RarityMythicalGrace:   decimal.RequireFromString("4.5"),
	RarityEtherealWhisper: decimal.NewFromInt(5),
	RarityFrozenAurora:    decimal.RequireFromString("5.5"),
	RarityVoltResonant:    decimal.NewFromInt(6),
	RarityDivineAscendant: decimal.RequireFromString("6.5"),
	RarityForbiddenDesire: decimal.NewFromInt(7),
	RarityCinematicLegend: decimal.RequireFromString("7.5"),
}

// ErrUnknownRarity is returned when a tier name is not recognised
var ErrUnknownRarity = shared.NewDomainError("UNKNOWN_RARITY", "Unknown rarity tier")

// AllRarities returns every tier in ascending order
func AllRarities() []Rarity {
	out := make([]Rarity, 0, len(rarityNames)-1)
	for r := RarityCommonBlossom; r <= RarityCinematicLegend; r++ {
		out = append(out, r)
	}
	return out
}

// ParseRarity resolves a tier by name, ignoring case and surrounding space
func ParseRarity(name string) (Rarity, error) {
	name = strings.TrimSpace(name)
	for r := RarityCommonBlossom; r <= RarityCinematicLegend; r++ {
		if strings.EqualFold(rarityNames[r], name) {
			return r, nil
		}
	}
	return 0, ErrUnknownRarity.WithMessage("unknown rarity %q", name)
}

// IsValid reports whether r is one of the 18 tiers
func (r Rarity) IsValid() bool {
	return r >= RarityCommonBlossom && r <= RarityCinematicLegend
}

// String returns the display name
func (r Rarity) String() string {
	if !r.IsValid() {
		return "Unknown"
	}
	return rarityNames[r]
}

// Multiplier returns the market price multiplier for the tier
func (r Rarity) Multiplier() decimal.Decimal {
	if m, ok := rarityMultipliers[r]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// MarketPrice computes base x multiplier, truncated to whole crystals
func (r Rarity) MarketPrice(base int64) int64 {
	return decimal.NewFromInt(base).Mul(r.Multiplier()).IntPart()
}

// MarshalText encodes the tier by name
func (r Rarity) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, ErrUnknownRarity
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a tier name
func (r *Rarity) UnmarshalText(b []byte) error {
	parsed, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
