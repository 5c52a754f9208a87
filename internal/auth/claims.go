package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

// Only access tokens are minted here; refresh is the identity provider's job.
const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for this service.
// Cafe ownership is never carried in the token; it is resolved server-side per request.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
