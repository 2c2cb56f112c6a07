package identity

import (
	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/auth"
	"github.com/anandkp/shelfwise-backend/pkg/enums"
)

// Identity is the authenticated caller of checkout operations. Both
// authentication variants resolve to the same opaque user id; consumers
// only branch on PhoneVerified to decide whether the verification step
// is still required.
type Identity struct {
	UserID        uuid.UUID
	Kind          enums.IdentityKind
	PhoneVerified bool
}

// FromClaims maps validated JWT claims onto an identity.
func FromClaims(claims *auth.AccessTokenClaims) Identity {
	if claims == nil {
		return Identity{}
	}
	return Identity{
		UserID:        claims.UserID,
		Kind:          claims.Kind,
		PhoneVerified: claims.PhoneVerified,
	}
}

// IsZero reports whether the identity carries no authenticated user.
func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil
}
