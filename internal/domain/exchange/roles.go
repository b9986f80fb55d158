package exchange

import "github.com/waifubot/backend/internal/domain/shared"

// Role is the privilege level of an account
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	}
	return "user"
}

// RoleResolver maps accounts to roles
type RoleResolver interface {
	RoleOf(accountID int64) Role
}

// StaticRoles resolves roles from a fixed owner id and admin list
type StaticRoles struct {
	OwnerID int64
	admins  map[int64]struct{}
}

// NewStaticRoles builds a resolver. The owner is implicitly an admin.
func NewStaticRoles(ownerID int64, adminIDs []int64) *StaticRoles {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &StaticRoles{OwnerID: ownerID, admins: admins}
}

// RoleOf returns the account's role
func (s *StaticRoles) RoleOf(accountID int64) Role {
	if accountID != 0 && accountID == s.OwnerID {
		return RoleOwner
	}
	if _, ok := s.admins[accountID]; ok {
		return RoleAdmin
	}
	return RoleUser
}

// AuthorizeIssuer checks the issuer may start administrative actions
func AuthorizeIssuer(roles RoleResolver, issuerID int64) error {
	if roles.RoleOf(issuerID) < RoleAdmin {
		return shared.ErrUnauthorized.WithMessage("only the owner or admins can do this")
	}
	return nil
}

// AuthorizeTarget checks issuer may act on target. Nobody targets the owner
// or a bot. Admins are only targeted by the owner.
func AuthorizeTarget(roles RoleResolver, issuerID, targetID int64, targetIsBot bool) error {
	if err := AuthorizeIssuer(roles, issuerID); err != nil {
		return err
	}
	if targetIsBot {
		return shared.ErrInvalidInput.WithMessage("cannot target a bot account")
	}
	switch roles.RoleOf(targetID) {
	case RoleOwner:
		return shared.ErrUnauthorized.WithMessage("the owner cannot be targeted")
	case RoleAdmin:
		if roles.RoleOf(issuerID) != RoleOwner {
			return shared.ErrUnauthorized.WithMessage("only the owner can target an admin")
		}
	}
	return nil
}

// CanRespond reports whether responderID may accept or decline p
func CanRespond(roles RoleResolver, p *Proposal, responderID int64) bool {
	switch p.Kind {
	case KindGift, KindTrade, KindPurchase:
		return responderID == p.ResponderID
	case KindTransfer, KindReset, KindAddCard:
		return responderID == p.ProposerID || roles.RoleOf(responderID) == RoleOwner
	}
	return false
}
