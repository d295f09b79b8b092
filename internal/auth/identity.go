// Package auth defines the caller identity passed explicitly from the HTTP
// layer into services.  Nothing in the service layer reads ambient request
// state; every operation receives the Identity it acts for.
package auth

import "github.com/iliyamo/sports-hall-booking/internal/model"

// Identity is the authenticated caller of an operation.  The zero value
// is an anonymous guest.
type Identity struct {
	UserID uint64
	Role   string
}

// Guest is the identity of an unauthenticated caller.
var Guest = Identity{}

// Authenticated reports whether the caller presented a valid token.
func (i Identity) Authenticated() bool { return i.UserID != 0 }

// IsOwner reports whether the caller has the OWNER role.
func (i Identity) IsOwner() bool { return i.Role == model.RoleOwner }

// Is reports whether the caller is the given user.
func (i Identity) Is(userID uint64) bool { return i.Authenticated() && i.UserID == userID }
