package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/waifubot/backend/internal/domain/shared"
)

const (
	ownerID = int64(100)
	adminID = int64(200)
	admin2  = int64(201)
	userID  = int64(300)
	user2   = int64(301)
)

func testRoles() *StaticRoles {
	return NewStaticRoles(ownerID, []int64{ownerID, adminID, admin2})
}

func TestStaticRoles_RoleOf(t *testing.T) {
	r := testRoles()
	assert.Equal(t, RoleOwner, r.RoleOf(ownerID))
	assert.Equal(t, RoleAdmin, r.RoleOf(adminID))
	assert.Equal(t, RoleUser, r.RoleOf(userID))
	assert.Equal(t, RoleUser, NewStaticRoles(0, nil).RoleOf(0))
}

func TestAuthorizeTarget(t *testing.T) {
	r := testRoles()
	tests := []struct {
		name    string
		issuer  int64
		target  int64
		isBot   bool
		wantErr *shared.DomainError
	}{
		{"owner targets user", ownerID, userID, false, nil},
		{"admin targets user", adminID, userID, false, nil},
		{"owner targets admin", ownerID, adminID, false, nil},
		{"admin targets admin", adminID, admin2, false, shared.ErrUnauthorized},
		{"admin targets owner", adminID, ownerID, false, shared.ErrUnauthorized},
		{"owner targets self", ownerID, ownerID, false, shared.ErrUnauthorized},
		{"user issues", userID, user2, false, shared.ErrUnauthorized},
		{"bot target", ownerID, user2, true, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeTarget(r, tt.issuer, tt.target, tt.isBot)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCanRespond(t *testing.T) {
	r := testRoles()

	gift := &Proposal{Kind: KindGift, ProposerID: userID, ResponderID: user2}
	assert.True(t, CanRespond(r, gift, user2))
	assert.False(t, CanRespond(r, gift, userID))
	assert.False(t, CanRespond(r, gift, ownerID))

	purchase := &Proposal{Kind: KindPurchase, ProposerID: userID, ResponderID: userID}
	assert.True(t, CanRespond(r, purchase, userID))
	assert.False(t, CanRespond(r, purchase, user2))

	reset := &Proposal{Kind: KindReset, ProposerID: adminID, TargetID: userID}
	assert.True(t, CanRespond(r, reset, adminID))
	assert.True(t, CanRespond(r, reset, ownerID))
	assert.False(t, CanRespond(r, reset, admin2))
	assert.False(t, CanRespond(r, reset, userID))
}
