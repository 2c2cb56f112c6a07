package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/anandkp/shelfwise-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Kind records the authentication variant; downstream consumers only use
// UserID and PhoneVerified.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Kind          enums.IdentityKind
	PhoneVerified bool
}

// AccessTokenClaims represents the typed JWT issued to buyers.
type AccessTokenClaims struct {
	UserID        uuid.UUID          `json:"user_id"`
	Kind          enums.IdentityKind `json:"identity_kind"`
	PhoneVerified bool               `json:"phone_verified"`
	jwt.RegisteredClaims
}
