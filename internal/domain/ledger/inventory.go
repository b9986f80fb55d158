package ledger

// InventoryUnit is the count of one card held by one account.
// Persisted rows always have Quantity >= 1.
type InventoryUnit struct {
	AccountID int64
	CardID    int64
	Quantity  int64
}

// InventoryEntry is a unit joined with its card definition
type InventoryEntry struct {
	Card     CardDefinition
	Quantity int64
}
