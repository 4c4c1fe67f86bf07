package api_models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds JWT service configuration
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
	Issuer              string
}

// AccessClaims are the claims embedded in an access token
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
}

// TokenPair holds an issued access token and its metadata
type TokenPair struct {
	AccessToken string `json:"access_token"`
	TokenID     string `json:"token_id"`
	ExpiresAt   int64  `json:"expires_at"`
}
