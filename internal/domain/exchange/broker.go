package exchange

import "context"

// Broker holds pending proposals until they are consumed or expire
type Broker interface {
	// Create stores a copy of the proposal under a fresh token and returns
	// it. Token and CreatedAt are set by the broker.
	Create(ctx context.Context, p Proposal) (*Proposal, error)

	// Lookup returns the proposal, shared.ErrNotFound or shared.ErrExpired
	Lookup(ctx context.Context, token string) (*Proposal, error)

	// Consume removes and returns the proposal. Of concurrent consumers
	// exactly one wins, the others get shared.ErrNotFound.
	Consume(ctx context.Context, token string) (*Proposal, error)

	// Len reports the number of held proposals, expired ones included
	Len() int
}

// ExpiryHandler is told about each proposal the broker sweeps after expiry
type ExpiryHandler func(ctx context.Context, p *Proposal)
