package repository

import (
	"context"

	"github.com/nkiryanov/deskled/internal/models"
)

// Storage gives access to every repository bound to the same connection or transaction
type Storage interface {
	OAuth2() OAuth2Repo
	Device() DeviceRepo

	// Run fn in a transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// OAuth2 tokens repository interface
type OAuth2Repo interface {
	// Create tokens
	// Duplicate token strings must return apperrors.ErrTokenExists
	CreateExchangeToken(ctx context.Context, token models.ExchangeToken) error
	CreateBearerToken(ctx context.Context, token models.BearerToken) error
	CreateRefreshToken(ctx context.Context, token models.RefreshToken) error

	// Get tokens by their string
	// If token not found must return apperrors.ErrTokenNotFound
	GetExchangeToken(ctx context.Context, token string) (models.ExchangeToken, error)
	GetBearerToken(ctx context.Context, token string) (models.BearerToken, error)
	GetRefreshToken(ctx context.Context, token string) (models.RefreshToken, error)

	// Delete expired tokens, no error if token is gone already
	DeleteExchangeToken(ctx context.Context, token string) error
	DeleteBearerToken(ctx context.Context, token string) error
}

// Persisted state of the only light
type DeviceRepo interface {
	// Serialize mutating transactions, released on commit or rollback
	Lock(ctx context.Context) error

	// If color was never stored must return apperrors.ErrColorNotSet
	GetColor(ctx context.Context) (models.Color, error)
	SetColor(ctx context.Context, color models.Color) error

	// If power state was never stored must return apperrors.ErrPowerNotSet
	GetPower(ctx context.Context) (bool, error)
	SetPower(ctx context.Context, on bool) error
}
