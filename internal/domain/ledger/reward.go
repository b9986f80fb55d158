package ledger

import (
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// RewardCategory is a periodic reward
type RewardCategory string

const (
	RewardDaily   RewardCategory = "daily"
	RewardWeekly  RewardCategory = "weekly"
	RewardMonthly RewardCategory = "monthly"

	// Card rewards pay a random catalog card
	RewardClaim RewardCategory = "claim"
	RewardCraft RewardCategory = "craft"
	RewardMarry RewardCategory = "marry"
)

// ParseRewardCategory validates a category name
func ParseRewardCategory(s string) (RewardCategory, error) {
	switch c := RewardCategory(s); c {
	case RewardDaily, RewardWeekly, RewardMonthly, RewardClaim, RewardCraft, RewardMarry:
		return c, nil
	}
	return "", shared.ErrInvalidInput.WithMessage("unknown reward category %q", s)
}

// CraftRarities are the tiers a craft reward can pay
var CraftRarities = []Rarity{
	RarityCommonBlossom,
	RarityCharmingGlow,
	RarityElegantRose,
	RarityRareSparkle,
	RarityEnchantedFlame,
	RarityAnimatedSpirit,
	RarityChromaPulse,
}

// CardDrop describes which card a card reward draws
type CardDrop struct {
	// Chance is the probability the drawn card is kept. Zero always keeps it.
	Chance float64
	// Rarities limits the draw. Empty allows every tier.
	Rarities []Rarity
	// NoVideo lists tiers whose video cards are never drawn
	NoVideo []Rarity
}

// Keeps reports whether a roll in [0,1) keeps the drawn card
func (d CardDrop) Keeps(roll float64) bool {
	return d.Chance <= 0 || roll < d.Chance
}

// RewardRule is the payout and cooldown of one category.
// A rule with a Drop pays a card and Amount is a crystal bonus on top.
type RewardRule struct {
	Amount   int64
	Cooldown time.Duration
	Drop     *CardDrop
}

// RewardPolicy maps each category to its rule
type RewardPolicy map[RewardCategory]RewardRule

// DefaultRewardPolicy returns the stock payouts
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		RewardDaily:   {Amount: 5000, Cooldown: 24 * time.Hour},
		RewardWeekly:  {Amount: 25000, Cooldown: 7 * 24 * time.Hour},
		RewardMonthly: {Amount: 50000, Cooldown: 30 * 24 * time.Hour},
		RewardClaim:   {Cooldown: 24 * time.Hour, Drop: &CardDrop{}},
		RewardCraft:   {Amount: 10000, Cooldown: 24 * time.Hour, Drop: &CardDrop{Rarities: CraftRarities}},
		RewardMarry: {Cooldown: 2 * time.Minute, Drop: &CardDrop{
			Chance:  0.7,
			NoVideo: []Rarity{RarityCinematicLegend},
		}},
	}
}

// Draw is the outcome of a card reward roll
type Draw struct {
	CardID int64
	Kept   bool
}

// CooldownError reports how long until a reward can be claimed again
type CooldownError struct {
	Category  RewardCategory
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return "reward " + string(e.Category) + " available in " + e.Remaining.Round(time.Minute).String()
}

// Unwrap lets errors.Is match shared.ErrCooldownActive
func (e *CooldownError) Unwrap() error {
	return shared.ErrCooldownActive
}

// claimSlot returns the cooldown stamp of c and the bucket its crystals go to.
// Card reward bonuses are daily crystals.
func (a *Account) claimSlot(c RewardCategory) (**time.Time, *int64) {
	switch c {
	case RewardDaily:
		return &a.DailyClaimAt, &a.Balance.Daily
	case RewardWeekly:
		return &a.WeeklyClaimAt, &a.Balance.Weekly
	case RewardMonthly:
		return &a.MonthlyClaimAt, &a.Balance.Monthly
	case RewardClaim:
		return &a.CardClaimAt, &a.Balance.Daily
	case RewardCraft:
		return &a.CraftClaimAt, &a.Balance.Daily
	case RewardMarry:
		return &a.MarryClaimAt, &a.Balance.Daily
	}
	return nil, nil
}

// LastClaim returns when c was last claimed, nil if never
func (a *Account) LastClaim(c RewardCategory) *time.Time {
	slot, _ := a.claimSlot(c)
	if slot == nil || *slot == nil {
		return nil
	}
	last := **slot
	return &last
}

func (a *Account) claim(c RewardCategory, policy RewardPolicy, now time.Time, card bool) (RewardRule, error) {
	rule, ok := policy[c]
	slot, bucket := a.claimSlot(c)
	if !ok || slot == nil {
		return RewardRule{}, shared.ErrInvalidInput.WithMessage("unknown reward category %q", c)
	}
	if (rule.Drop != nil) != card {
		if card {
			return RewardRule{}, shared.ErrInvalidInput.WithMessage("reward %q does not pay a card", c)
		}
		return RewardRule{}, shared.ErrInvalidInput.WithMessage("reward %q pays a card", c)
	}

	if last := *slot; last != nil {
		if elapsed := now.Sub(*last); elapsed < rule.Cooldown {
			return RewardRule{}, &CooldownError{Category: c, Remaining: rule.Cooldown - elapsed}
		}
	}

	*bucket += rule.Amount
	claimed := now
	*slot = &claimed
	a.UpdatedAt = now
	return rule, nil
}

// ClaimReward credits the category's payout to its own sub-balance if the
// cooldown since the last claim has elapsed.
func (a *Account) ClaimReward(c RewardCategory, policy RewardPolicy, now time.Time) (int64, error) {
	rule, err := a.claim(c, policy, now, false)
	if err != nil {
		return 0, err
	}
	a.AddDomainEvent(NewRewardClaimedEvent(a, c, rule.Amount, now))
	return rule.Amount, nil
}

// ClaimDrop consumes the cooldown of a card reward and credits its bonus.
// The drawn unit itself is granted by the caller when draw.Kept is set.
func (a *Account) ClaimDrop(c RewardCategory, policy RewardPolicy, now time.Time, draw Draw) (int64, error) {
	rule, err := a.claim(c, policy, now, true)
	if err != nil {
		return 0, err
	}
	event := NewRewardClaimedEvent(a, c, rule.Amount, now)
	if draw.Kept {
		event.CardID = draw.CardID
	}
	a.AddDomainEvent(event)
	return rule.Amount, nil
}

// UndoClaim puts back the stamp that preceded a claim of c and takes back
// its crystals, never below zero
func (a *Account) UndoClaim(c RewardCategory, previous *time.Time, amount int64) {
	slot, bucket := a.claimSlot(c)
	if slot == nil {
		return
	}
	*slot = previous
	*bucket = max(*bucket-amount, 0)
}
