package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/models"
)

type OAuth2Repo struct {
	DB DBTX
}

const createExchangeToken = `-- name: CreateExchangeToken
INSERT INTO oauth2_exchange_tokens (token, expiry)
VALUES ($1, $2)
`

func (r *OAuth2Repo) CreateExchangeToken(ctx context.Context, token models.ExchangeToken) error {
	_, err := r.DB.Exec(ctx, createExchangeToken, token.Token, token.Expiry)
	return insertError(err)
}

const createBearerToken = `-- name: CreateBearerToken
INSERT INTO oauth2_bearer_tokens (token, expiry)
VALUES ($1, $2)
`

func (r *OAuth2Repo) CreateBearerToken(ctx context.Context, token models.BearerToken) error {
	_, err := r.DB.Exec(ctx, createBearerToken, token.Token, token.Expiry)
	return insertError(err)
}

const createRefreshToken = `-- name: CreateRefreshToken
INSERT INTO oauth2_refresh_tokens (token)
VALUES ($1)
`

func (r *OAuth2Repo) CreateRefreshToken(ctx context.Context, token models.RefreshToken) error {
	_, err := r.DB.Exec(ctx, createRefreshToken, token.Token)
	return insertError(err)
}

const getExchangeToken = `-- name: GetExchangeToken
SELECT expiry FROM oauth2_exchange_tokens
WHERE token = $1
`

// Expired tokens are returned as is, the caller decides what to do with them
func (r *OAuth2Repo) GetExchangeToken(ctx context.Context, token string) (models.ExchangeToken, error) {
	rows, _ := r.DB.Query(ctx, getExchangeToken, token)
	expiry, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	return models.ExchangeToken{Token: token, Expiry: expiry}, selectError(err)
}

const getBearerToken = `-- name: GetBearerToken
SELECT expiry FROM oauth2_bearer_tokens
WHERE token = $1
`

func (r *OAuth2Repo) GetBearerToken(ctx context.Context, token string) (models.BearerToken, error) {
	rows, _ := r.DB.Query(ctx, getBearerToken, token)
	expiry, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	return models.BearerToken{Token: token, Expiry: expiry}, selectError(err)
}

const getRefreshToken = `-- name: GetRefreshToken
SELECT token FROM oauth2_refresh_tokens
WHERE token = $1
`

func (r *OAuth2Repo) GetRefreshToken(ctx context.Context, token string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getRefreshToken, token)
	got, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	return models.RefreshToken{Token: got}, selectError(err)
}

const deleteExchangeToken = `-- name: DeleteExchangeToken
DELETE FROM oauth2_exchange_tokens
WHERE token = $1
`

func (r *OAuth2Repo) DeleteExchangeToken(ctx context.Context, token string) error {
	_, err := r.DB.Exec(ctx, deleteExchangeToken, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteBearerToken = `-- name: DeleteBearerToken
DELETE FROM oauth2_bearer_tokens
WHERE token = $1
`

func (r *OAuth2Repo) DeleteBearerToken(ctx context.Context, token string) error {
	_, err := r.DB.Exec(ctx, deleteBearerToken, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func insertError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("repo error: %w", apperrors.ErrTokenExists)
	}

	return fmt.Errorf("db error: %w", err)
}

func selectError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
