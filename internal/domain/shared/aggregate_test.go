package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_PullDomainEvents(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.GetVersion())
	assert.Empty(t, root.PullDomainEvents())

	e := NewBaseDomainEvent("BalanceAdjusted", "Account", "42", time.Unix(0, 0))
	root.AddDomainEvent(&e)
	root.IncrementVersion()

	pulled := root.PullDomainEvents()
	assert.Len(t, pulled, 1)
	assert.Equal(t, "42", pulled[0].AggregateID())
	assert.Empty(t, root.GetDomainEvents())
	assert.Equal(t, 2, root.GetVersion())
}

func TestBaseDomainEvent_Envelope(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))
	e := NewBaseDomainEvent("ExchangeAccepted", "Proposal", "abc", at)

	assert.NotEqual(t, e.EventID(), NewBaseDomainEvent("ExchangeAccepted", "Proposal", "abc", at).EventID())
	assert.Equal(t, time.UTC, e.OccurredAt().Location())
	assert.True(t, e.OccurredAt().Equal(at))
	assert.Equal(t, "ExchangeAccepted(Proposal/abc)", e.String())
}
