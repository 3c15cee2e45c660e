package oauth2

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/models"
	"github.com/nkiryanov/deskled/internal/repository"
	"github.com/nkiryanov/deskled/internal/repository/postgres"
	"github.com/nkiryanov/deskled/internal/testutil"
)

// Mutable clock for expiry tests
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func Test_Authority(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Create Authority bound to a transaction rolled back when test stops
	withTx := func(t *testing.T, fn func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}

			a, err := NewAuthority(Config{
				ClientID:     "client",
				ClientSecret: "secret",
				Username:     "admin",
				Password:     "pwd",
				Hasher:       BcryptHasher{Cost: bcrypt.MinCost},
				Now:          c.Now,
			}, storage)
			require.NoError(t, err, "authority should be created without errors")

			fn(a, storage, tx, c)
		})
	}

	okLogin := LoginRequest{
		ClientID:     "client",
		RedirectURI:  "https://example.com/cb",
		ResponseType: "code",
		State:        "xyz",
		Username:     "admin",
		Password:     "pwd",
	}

	// Log in and return the exchange code from the redirect
	login := func(t *testing.T, a *Authority) string {
		redirect, err := a.Login(t.Context(), okLogin)
		require.NoError(t, err)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		return u.Query().Get("code")
	}

	t.Run("new authority defaults", func(t *testing.T) {
		a, err := NewAuthority(Config{Password: "pwd", Hasher: BcryptHasher{Cost: bcrypt.MinCost}}, postgres.NewStorage(pg.Pool))
		require.NoError(t, err)

		require.Equal(t, DefaultExchangeTTL, a.exchangeTTL)
		require.Equal(t, DefaultBearerTTL, a.bearerTTL)
		require.NotNil(t, a.now)
	})

	t.Run("new authority without storage", func(t *testing.T) {
		_, err := NewAuthority(Config{}, nil)

		require.Error(t, err)
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("login ok", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				redirect, err := a.Login(t.Context(), okLogin)
				require.NoError(t, err)

				u, err := url.Parse(redirect)
				require.NoError(t, err)
				require.Equal(t, "example.com", u.Host)
				require.Equal(t, "/cb", u.Path)
				require.Equal(t, "xyz", u.Query().Get("state"))

				code, err := s.OAuth2().GetExchangeToken(t.Context(), u.Query().Get("code"))
				require.NoError(t, err, "exchange token must be stored")
				require.Equal(t, c.now.Add(10*time.Minute), code.Expiry.UTC())
			})
		})

		t.Run("state returned as is", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				req := okLogin
				req.State = "a/b+c=d"

				redirect, err := a.Login(t.Context(), req)
				require.NoError(t, err)

				require.True(t, strings.HasPrefix(redirect, "https://example.com/cb?code="))
				require.True(t, strings.HasSuffix(redirect, "&state=a/b+c=d"), "state must not be escaped: %s", redirect)
			})
		})

		tests := []struct {
			name   string
			modify func(r *LoginRequest)
		}{
			{"wrong client id", func(r *LoginRequest) { r.ClientID = "other" }},
			{"wrong response type", func(r *LoginRequest) { r.ResponseType = "token" }},
			{"wrong username", func(r *LoginRequest) { r.Username = "root" }},
			{"wrong password", func(r *LoginRequest) { r.Password = "wrong" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
					req := okLogin
					tt.modify(&req)

					_, err := a.Login(t.Context(), req)

					require.ErrorIs(t, err, apperrors.ErrUnauthorized)
				})
			})
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("authorization code ok", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				code := login(t, a)

				issued, err := a.Exchange(t.Context(), Grant{
					ClientID: "client", ClientSecret: "secret", GrantType: GrantAuthorizationCode, Code: code,
				})

				require.NoError(t, err)
				require.Len(t, issued.Bearer.Token, 20)
				require.Len(t, issued.Refresh, 20)
				require.Equal(t, 24*time.Hour, issued.ExpiresIn)

				_, err = s.OAuth2().GetBearerToken(t.Context(), issued.Bearer.Token)
				require.NoError(t, err, "bearer must be stored")
				_, err = s.OAuth2().GetRefreshToken(t.Context(), issued.Refresh)
				require.NoError(t, err, "refresh must be stored")
				_, err = s.OAuth2().GetExchangeToken(t.Context(), code)
				require.NoError(t, err, "code is kept after successful exchange")
			})
		})

		t.Run("refresh token ok", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				code := login(t, a)
				first, err := a.Exchange(t.Context(), Grant{
					ClientID: "client", ClientSecret: "secret", GrantType: GrantAuthorizationCode, Code: code,
				})
				require.NoError(t, err)

				issued, err := a.Exchange(t.Context(), Grant{
					ClientID: "client", ClientSecret: "secret", GrantType: GrantRefreshToken, RefreshToken: first.Refresh,
				})

				require.NoError(t, err)
				require.NotEqual(t, first.Bearer.Token, issued.Bearer.Token)
				require.Empty(t, issued.Refresh, "refresh grant does not issue refresh token")
			})
		})

		t.Run("wrong client secret issues nothing", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				code := login(t, a)

				_, err := a.Exchange(t.Context(), Grant{
					ClientID: "client", ClientSecret: "wrong", GrantType: GrantAuthorizationCode, Code: code,
				})
				require.ErrorIs(t, err, apperrors.ErrInvalidGrant)

				require.Zero(t, testutil.CountRows(t, tx, "oauth2_bearer_tokens"), "no bearer must be created")
				require.Zero(t, testutil.CountRows(t, tx, "oauth2_refresh_tokens"), "no refresh must be created")
			})
		})

		t.Run("expired code removed", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				code := login(t, a)
				c.now = c.now.Add(11 * time.Minute)

				_, err := a.Exchange(t.Context(), Grant{
					ClientID: "client", ClientSecret: "secret", GrantType: GrantAuthorizationCode, Code: code,
				})
				require.ErrorIs(t, err, apperrors.ErrInvalidGrant)

				_, err = s.OAuth2().GetExchangeToken(t.Context(), code)
				require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "expired code must be deleted")
			})
		})

		tests := []struct {
			name  string
			grant Grant
		}{
			{"unknown code", Grant{ClientID: "client", ClientSecret: "secret", GrantType: GrantAuthorizationCode, Code: "nope"}},
			{"missing code", Grant{ClientID: "client", ClientSecret: "secret", GrantType: GrantAuthorizationCode}},
			{"unknown refresh", Grant{ClientID: "client", ClientSecret: "secret", GrantType: GrantRefreshToken, RefreshToken: "nope"}},
			{"missing refresh", Grant{ClientID: "client", ClientSecret: "secret", GrantType: GrantRefreshToken}},
			{"unknown grant type", Grant{ClientID: "client", ClientSecret: "secret", GrantType: "password"}},
			{"wrong client id", Grant{ClientID: "other", ClientSecret: "secret", GrantType: GrantRefreshToken, RefreshToken: "x"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
					_, err := a.Exchange(t.Context(), tt.grant)

					require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
				})
			})
		}
	})

	t.Run("Authorize", func(t *testing.T) {
		t.Run("valid bearer ok", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				err := s.OAuth2().CreateBearerToken(t.Context(), models.BearerToken{Token: "abc", Expiry: c.now.Add(time.Hour)})
				require.NoError(t, err)

				err = a.Authorize(t.Context(), "Bearer abc")

				require.NoError(t, err)
			})
		})

		t.Run("expired bearer rejected twice and removed", func(t *testing.T) {
			withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
				err := s.OAuth2().CreateBearerToken(t.Context(), models.BearerToken{Token: "abc", Expiry: c.now.Add(-time.Second)})
				require.NoError(t, err)

				err = a.Authorize(t.Context(), "Bearer abc")
				require.ErrorIs(t, err, apperrors.ErrUnauthorized)

				_, err = s.OAuth2().GetBearerToken(t.Context(), "abc")
				require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "expired token must be deleted")

				err = a.Authorize(t.Context(), "Bearer abc")
				require.ErrorIs(t, err, apperrors.ErrUnauthorized)
			})
		})

		tests := []struct {
			name   string
			header string
		}{
			{"missing header", ""},
			{"non ascii header", "Bearer абв"},
			{"basic scheme", "Basic abc"},
			{"lower case scheme", "bearer abc"},
			{"no space", "Bearerabc"},
			{"unknown token", "Bearer unknown"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(t, func(a *Authority, s repository.Storage, tx pgx.Tx, c *clock) {
					err := s.OAuth2().CreateBearerToken(t.Context(), models.BearerToken{Token: "abc", Expiry: c.now.Add(time.Hour)})
					require.NoError(t, err)

					err = a.Authorize(t.Context(), tt.header)

					require.ErrorIs(t, err, apperrors.ErrUnauthorized)
				})
			})
		}
	})
}
