package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims mirrors the access token payload issued by the marketplace API.
type AccessClaims struct {
	UserID    int64  `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}
