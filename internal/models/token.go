package models

import (
	"time"
)

// Short lived authorization code handed back to the login redirect
type ExchangeToken struct {
	Token  string
	Expiry time.Time
}

// Access token presented in "Authorization: Bearer <token>"
type BearerToken struct {
	Token  string
	Expiry time.Time
}

// Refresh tokens never expire and are never rotated
type RefreshToken struct {
	Token string
}

// Token set returned by a successful exchange
// Refresh is empty for the refresh_token grant
type IssuedGrant struct {
	Bearer    BearerToken
	ExpiresIn time.Duration
	Refresh   string
}

// Still valid at the expiry instant itself
func (t ExchangeToken) Expired(now time.Time) bool {
	return now.After(t.Expiry)
}

func (t BearerToken) Expired(now time.Time) bool {
	return now.After(t.Expiry)
}
