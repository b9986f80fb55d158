package exchange

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/telemetry"
)

// Engine is the set of atomic unit-move primitives behind every exchange flow.
// Each call is one unit of work: it commits completely or not at all.
type Engine interface {
	TransferUnit(ctx context.Context, fromID, toID, cardID int64) error
	SwapUnits(ctx context.Context, aID, cardA, bID, cardB int64) error
	PurchaseUnit(ctx context.Context, buyerID, cardID, price int64) (ledger.Balance, error)
	GrantUnit(ctx context.Context, issuerID, targetID, cardID int64) error
	WipeInventory(ctx context.Context, targetID int64) (int64, error)
	RegisterCard(ctx context.Context, draft ledger.CardDraft) (*ledger.CardDefinition, error)
}

// TransferEngine implements Engine on top of a TransactionScope.
// Ownership and balance are re-read under row locks inside the transaction.
type TransferEngine struct {
	scope TransactionScope
}

// NewTransferEngine creates a new TransferEngine
func NewTransferEngine(scope TransactionScope) *TransferEngine {
	return &TransferEngine{scope: scope}
}

// TransferUnit moves one unit of a card from one account to another
func (e *TransferEngine) TransferUnit(ctx context.Context, fromID, toID, cardID int64) error {
	if fromID == toID {
		return shared.ErrInvalidInput.WithMessage("source and destination account are the same")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "transfer_unit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, fromID,
		telemetry.SpanAttrCounterpartyID, toID,
		telemetry.SpanAttrCardID, cardID,
	)

	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requireCards(ctx, repos, cardID); err != nil {
			return err
		}
		if err := lockHoldings(ctx, repos, holding{fromID, cardID}); err != nil {
			return err
		}
		return shiftUnit(ctx, repos, fromID, toID, cardID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// SwapUnits moves cardA from a to b and cardB from b to a in one transaction.
// Both holdings are locked and checked before either leg runs.
func (e *TransferEngine) SwapUnits(ctx context.Context, aID, cardA, bID, cardB int64) error {
	if aID == bID {
		return shared.ErrInvalidInput.WithMessage("cannot swap with the same account")
	}
	if cardA == cardB {
		return shared.ErrInvalidInput.WithMessage("cannot swap a card for itself")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "swap_units")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, aID,
		telemetry.SpanAttrCounterpartyID, bID,
	)

	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requireCards(ctx, repos, cardA, cardB); err != nil {
			return err
		}
		if err := lockHoldings(ctx, repos, holding{aID, cardA}, holding{bID, cardB}); err != nil {
			return err
		}
		if err := shiftUnit(ctx, repos, aID, bID, cardA); err != nil {
			return err
		}
		return shiftUnit(ctx, repos, bID, aID, cardB)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// PurchaseUnit charges the buyer price crystals and gives them one unit.
// It returns the buyer's balance after the charge.
func (e *TransferEngine) PurchaseUnit(ctx context.Context, buyerID, cardID, price int64) (ledger.Balance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "purchase_unit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, buyerID,
		telemetry.SpanAttrCardID, cardID,
		telemetry.SpanAttrPrice, price,
	)

	var after ledger.Balance
	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Cards().FindByID(ctx, cardID); err != nil {
			return storeErr("find card", err)
		}
		account, err := lockAccount(ctx, repos.Accounts(), buyerID)
		if err != nil {
			return err
		}
		if err := account.Spend(price); err != nil {
			return err
		}
		if err := repos.Accounts().SaveWithLock(ctx, account); err != nil {
			return storeErr("save buyer", err)
		}
		if err := repos.Inventory().Increment(ctx, buyerID, cardID, 1); err != nil {
			return storeErr("increment buyer inventory", err)
		}
		after = account.Balance
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return ledger.Balance{}, err
	}
	return after, nil
}

// GrantUnit gives the target one unit without ownership or price checks
func (e *TransferEngine) GrantUnit(ctx context.Context, issuerID, targetID, cardID int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "grant_unit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, targetID,
		telemetry.SpanAttrCounterpartyID, issuerID,
		telemetry.SpanAttrCardID, cardID,
	)

	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Cards().FindByID(ctx, cardID); err != nil {
			return storeErr("find card", err)
		}
		if _, err := repos.Accounts().GetOrCreate(ctx, targetID); err != nil {
			return storeErr("get target", err)
		}
		return storeErr("increment target inventory", repos.Inventory().Increment(ctx, targetID, cardID, 1))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// WipeInventory removes every inventory row of the target and returns how
// many units were removed
func (e *TransferEngine) WipeInventory(ctx context.Context, targetID int64) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "wipe_inventory")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAccountID, targetID)

	var removed int64
	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		n, err := repos.Inventory().DeleteAllForAccount(ctx, targetID)
		if err != nil {
			return storeErr("delete inventory", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrQuantity, removed)
	return removed, nil
}

// RegisterCard adds a card to the catalog
func (e *TransferEngine) RegisterCard(ctx context.Context, draft ledger.CardDraft) (*ledger.CardDefinition, error) {
	card, err := ledger.NewCardDefinition(draft)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "transfer_engine", "register_card")
	defer span.End()

	err = e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return storeErr("create card", repos.Cards().Create(ctx, card))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrCardID, card.ID)
	return card, nil
}

func requireCards(ctx context.Context, repos TransactionalRepositories, ids ...int64) error {
	for _, id := range ids {
		if _, err := repos.Cards().FindByID(ctx, id); err != nil {
			return storeErr("find card", err)
		}
	}
	return nil
}

type holding struct {
	accountID int64
	cardID    int64
}

// lockHoldings row-locks the holdings in (account, card) order and fails with
// ErrNotOwned if any of them is empty. The fixed order keeps two crossing
// swaps from deadlocking each other.
func lockHoldings(ctx context.Context, repos TransactionalRepositories, holdings ...holding) error {
	ordered := slices.Clone(holdings)
	slices.SortFunc(ordered, func(x, y holding) int {
		return cmp.Or(cmp.Compare(x.accountID, y.accountID), cmp.Compare(x.cardID, y.cardID))
	})
	for _, h := range ordered {
		held, err := repos.Inventory().QuantityForUpdate(ctx, h.accountID, h.cardID)
		if err != nil {
			return storeErr("read quantity", err)
		}
		if held <= 0 {
			return shared.ErrNotOwned.WithMessage("account %d does not own card %d", h.accountID, h.cardID)
		}
	}
	return nil
}

// shiftUnit moves one unit of a holding already locked by lockHoldings
func shiftUnit(ctx context.Context, repos TransactionalRepositories, fromID, toID, cardID int64) error {
	if _, err := repos.Accounts().GetOrCreate(ctx, toID); err != nil {
		return storeErr("get recipient", err)
	}
	if err := repos.Inventory().Decrement(ctx, fromID, cardID, 1); err != nil {
		if errors.Is(err, shared.ErrInsufficientQuantity) {
			return shared.ErrNotOwned.WithMessage("account %d does not own card %d", fromID, cardID)
		}
		return storeErr("decrement source", err)
	}
	return storeErr("increment destination", repos.Inventory().Increment(ctx, toID, cardID, 1))
}

// lockAccount creates the account if needed and reads it under a row lock
func lockAccount(ctx context.Context, accounts ledger.AccountRepository, id int64) (*ledger.Account, error) {
	if _, err := accounts.GetOrCreate(ctx, id); err != nil {
		return nil, storeErr("get account", err)
	}
	account, err := accounts.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, storeErr("lock account", err)
	}
	return account, nil
}

// storeErr wraps infrastructure faults with the failed step and passes
// domain errors through untouched
func storeErr(step string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%s: %w", step, err)
}

// Ensure TransferEngine implements Engine
var _ Engine = (*TransferEngine)(nil)
