package oauth2

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/models"
	"github.com/nkiryanov/deskled/internal/repository"
)

const (
	DefaultExchangeTTL = 10 * time.Minute
	DefaultBearerTTL   = 24 * time.Hour

	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"

	responseTypeCode = "code"
	bearerPrefix     = "Bearer "
)

type Config struct {
	// Registered client credentials
	ClientID     string
	ClientSecret string

	// The only user allowed to log in
	Username string
	Password string

	// Token lifetimes, defaults used if zero
	ExchangeTTL time.Duration
	BearerTTL   time.Duration

	// Hasher for the login password, BcryptHasher if nil
	Hasher PasswordHasher

	// Clock, time.Now if nil
	Now func() time.Time
}

// Params of the login form submit
type LoginRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	State        string
	Username     string
	Password     string
}

// Params of the token endpoint
// Code is used by authorization_code grant, RefreshToken by refresh_token grant
type Grant struct {
	ClientID     string
	ClientSecret string
	GrantType    string
	Code         string
	RefreshToken string
}

// Token Authority: issues and validates OAuth2 tokens for the single client
type Authority struct {
	clientID     string
	clientSecret string
	username     string
	passwordHash string

	exchangeTTL time.Duration
	bearerTTL   time.Duration

	hasher  PasswordHasher
	now     func() time.Time
	storage repository.Storage
}

func NewAuthority(cfg Config, storage repository.Storage) (*Authority, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	a := &Authority{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		exchangeTTL:  orDefault(cfg.ExchangeTTL, DefaultExchangeTTL),
		bearerTTL:    orDefault(cfg.BearerTTL, DefaultBearerTTL),
		hasher:       cfg.Hasher,
		now:          cfg.Now,
		storage:      storage,
	}

	if a.hasher == nil {
		a.hasher = BcryptHasher{}
	}
	if a.now == nil {
		a.now = time.Now
	}

	hash, err := a.hasher.Hash(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("can't use this as password, error=%w", err)
	}
	a.passwordHash = hash

	return a, nil
}

// Login checks the credentials and stores a fresh exchange token
// Returns redirect uri with code and state query params
func (a *Authority) Login(ctx context.Context, req LoginRequest) (string, error) {
	switch {
	case !equal(req.ClientID, a.clientID):
		return "", fmt.Errorf("%w: unknown client", apperrors.ErrUnauthorized)
	case req.ResponseType != responseTypeCode:
		return "", fmt.Errorf("%w: response type %q not supported", apperrors.ErrUnauthorized, req.ResponseType)
	case !equal(req.Username, a.username):
		return "", fmt.Errorf("%w: wrong credentials", apperrors.ErrUnauthorized)
	}

	if err := a.hasher.Compare(a.passwordHash, req.Password); err != nil {
		return "", fmt.Errorf("%w: wrong credentials", apperrors.ErrUnauthorized)
	}

	code, err := GenerateToken()
	if err != nil {
		return "", err
	}

	err = a.storage.InTx(ctx, func(s repository.Storage) error {
		return s.OAuth2().CreateExchangeToken(ctx, models.ExchangeToken{
			Token:  code,
			Expiry: a.now().Add(a.exchangeTTL),
		})
	})
	if err != nil {
		return "", fmt.Errorf("error while saving exchange token. Err: %w", err)
	}

	// State is echoed unescaped
	return req.RedirectURI + "?code=" + code + "&state=" + req.State, nil
}

// Exchange trades an authorization code or a refresh token for a bearer token
// Every failure is reported as apperrors.ErrInvalidGrant except storage errors
func (a *Authority) Exchange(ctx context.Context, g Grant) (models.IssuedGrant, error) {
	if !equal(g.ClientID, a.clientID) || !equal(g.ClientSecret, a.clientSecret) {
		return models.IssuedGrant{}, fmt.Errorf("%w: client credentials mismatch", apperrors.ErrInvalidGrant)
	}

	switch g.GrantType {
	case GrantAuthorizationCode:
		return a.exchangeCode(ctx, g.Code)
	case GrantRefreshToken:
		return a.exchangeRefresh(ctx, g.RefreshToken)
	default:
		return models.IssuedGrant{}, fmt.Errorf("%w: grant type %q not supported", apperrors.ErrInvalidGrant, g.GrantType)
	}
}

func (a *Authority) exchangeCode(ctx context.Context, code string) (models.IssuedGrant, error) {
	if code == "" {
		return models.IssuedGrant{}, fmt.Errorf("%w: code is required", apperrors.ErrInvalidGrant)
	}

	var (
		issued  models.IssuedGrant
		expired bool
	)

	err := a.storage.InTx(ctx, func(s repository.Storage) error {
		now := a.now()

		exchange, err := s.OAuth2().GetExchangeToken(ctx, code)
		switch {
		case errors.Is(err, apperrors.ErrTokenNotFound):
			return fmt.Errorf("%w: unknown code", apperrors.ErrInvalidGrant)
		case err != nil:
			return err
		}

		// Deletion has to be committed, so the error is reported after the transaction
		if exchange.Expired(now) {
			expired = true
			return s.OAuth2().DeleteExchangeToken(ctx, code)
		}

		bearer, err := a.issueBearer(ctx, s, now)
		if err != nil {
			return err
		}

		refresh, err := GenerateToken()
		if err != nil {
			return err
		}
		err = s.OAuth2().CreateRefreshToken(ctx, models.RefreshToken{Token: refresh})
		if err != nil {
			return err
		}

		issued = models.IssuedGrant{Bearer: bearer, ExpiresIn: a.bearerTTL, Refresh: refresh}
		return nil
	})

	switch {
	case err != nil:
		return models.IssuedGrant{}, err
	case expired:
		return models.IssuedGrant{}, fmt.Errorf("%w: code expired", apperrors.ErrInvalidGrant)
	default:
		return issued, nil
	}
}

func (a *Authority) exchangeRefresh(ctx context.Context, refresh string) (models.IssuedGrant, error) {
	if refresh == "" {
		return models.IssuedGrant{}, fmt.Errorf("%w: refresh token is required", apperrors.ErrInvalidGrant)
	}

	var issued models.IssuedGrant

	err := a.storage.InTx(ctx, func(s repository.Storage) error {
		_, err := s.OAuth2().GetRefreshToken(ctx, refresh)
		switch {
		case errors.Is(err, apperrors.ErrTokenNotFound):
			return fmt.Errorf("%w: unknown refresh token", apperrors.ErrInvalidGrant)
		case err != nil:
			return err
		}

		bearer, err := a.issueBearer(ctx, s, a.now())
		if err != nil {
			return err
		}

		issued = models.IssuedGrant{Bearer: bearer, ExpiresIn: a.bearerTTL}
		return nil
	})

	return issued, err
}

func (a *Authority) issueBearer(ctx context.Context, s repository.Storage, now time.Time) (models.BearerToken, error) {
	token, err := GenerateToken()
	if err != nil {
		return models.BearerToken{}, err
	}

	bearer := models.BearerToken{Token: token, Expiry: now.Add(a.bearerTTL)}
	return bearer, s.OAuth2().CreateBearerToken(ctx, bearer)
}

// Authorize checks the raw Authorization header
// Expired tokens are deleted and the deletion is committed
func (a *Authority) Authorize(ctx context.Context, header string) error {
	if header == "" {
		return fmt.Errorf("%w: authorization header missing", apperrors.ErrUnauthorized)
	}
	if !isASCII(header) {
		return fmt.Errorf("%w: authorization header is not ascii", apperrors.ErrUnauthorized)
	}

	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return fmt.Errorf("%w: not a bearer authorization", apperrors.ErrUnauthorized)
	}

	var expired bool

	err := a.storage.InTx(ctx, func(s repository.Storage) error {
		bearer, err := s.OAuth2().GetBearerToken(ctx, token)
		switch {
		case errors.Is(err, apperrors.ErrTokenNotFound):
			return fmt.Errorf("%w: unknown bearer token", apperrors.ErrUnauthorized)
		case err != nil:
			return err
		}

		if bearer.Expired(a.now()) {
			expired = true
			return s.OAuth2().DeleteBearerToken(ctx, token)
		}

		return nil
	})

	switch {
	case err != nil:
		return err
	case expired:
		return fmt.Errorf("%w: bearer token expired", apperrors.ErrUnauthorized)
	default:
		return nil
	}
}

func equal(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
