package ledger

import (
	"strconv"
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// AggregateTypeAccount identifies account events
const AggregateTypeAccount = "Account"

// Balance holds the four crystal sub-balances of an account
type Balance struct {
	Daily   int64 `json:"daily"`
	Weekly  int64 `json:"weekly"`
	Monthly int64 `json:"monthly"`
	Given   int64 `json:"given"`
}

// Total returns the spendable sum of all sub-balances
func (b Balance) Total() int64 {
	return b.Daily + b.Weekly + b.Monthly + b.Given
}

// IsZero reports whether every sub-balance is zero
func (b Balance) IsZero() bool {
	return b == Balance{}
}

// Add returns b + d without any sign checks
func (b Balance) Add(d Balance) Balance {
	return Balance{
		Daily:   b.Daily + d.Daily,
		Weekly:  b.Weekly + d.Weekly,
		Monthly: b.Monthly + d.Monthly,
		Given:   b.Given + d.Given,
	}
}

func (b Balance) hasNegative() bool {
	return b.Daily < 0 || b.Weekly < 0 || b.Monthly < 0 || b.Given < 0
}

// Account is a chat user known to the ledger.
// Its ID is the chat platform's user id.
type Account struct {
	shared.BaseAggregateRoot
	ID             int64
	Username       string
	FirstName      string
	Balance        Balance
	DailyClaimAt   *time.Time
	WeeklyClaimAt  *time.Time
	MonthlyClaimAt *time.Time
	CardClaimAt    *time.Time
	CraftClaimAt   *time.Time
	MarryClaimAt   *time.Time
	StoreRefreshAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAccount creates an empty account
func NewAccount(id int64) (*Account, error) {
	if id == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("account id cannot be zero")
	}
	now := time.Now()
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ID:                id,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// AggregateKey returns the id used on domain events
func (a *Account) AggregateKey() string {
	return strconv.FormatInt(a.ID, 10)
}

// ApplyDelta adds signed deltas to the sub-balances.
// A result below zero in any sub-balance is rejected and nothing changes.
func (a *Account) ApplyDelta(delta Balance) error {
	next := a.Balance.Add(delta)
	if next.hasNegative() {
		return shared.ErrNegativeBalance
	}
	a.Balance = next
	a.UpdatedAt = time.Now()
	return nil
}

// Spend removes price crystals, draining daily, weekly, monthly and then
// given until the price is covered.
func (a *Account) Spend(price int64) error {
	if price < 0 {
		return shared.ErrInvalidInput.WithMessage("price cannot be negative")
	}
	if a.Balance.Total() < price {
		return shared.ErrInsufficientFunds.WithMessage("need %d crystals, have %d", price, a.Balance.Total())
	}

	remaining := price
	for _, bucket := range []*int64{&a.Balance.Daily, &a.Balance.Weekly, &a.Balance.Monthly, &a.Balance.Given} {
		if remaining == 0 {
			break
		}
		take := min(*bucket, remaining)
		*bucket -= take
		remaining -= take
	}
	a.UpdatedAt = time.Now()
	return nil
}
