package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/deskled/internal/handlers/middleware"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/models"
	"github.com/nkiryanov/deskled/internal/service/oauth2"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	oauth2Service oauth2Service,
	fulfillmentService fulfillmentService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(oauth2Service, logger)

	apioauth2 := http.NewServeMux()

	apioauth2.Handle("GET /login", handleLoginPage())
	apioauth2.Handle("POST /login", handleLogin(oauth2Service, logger))
	apioauth2.Handle("POST /exchange", handleExchange(oauth2Service, logger))

	root := http.NewServeMux()
	root.Handle("/oauth2/", http.StripPrefix("/oauth2", apioauth2))
	root.Handle("POST /fulfillment", withAuth(handleFulfillment(fulfillmentService, logger)))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type oauth2Service interface {
	// Check credentials and return redirect uri carrying a fresh exchange code
	// Has to return apperrors.ErrUnauthorized if anything does not match
	Login(ctx context.Context, req oauth2.LoginRequest) (string, error)

	// Trade authorization code or refresh token for a bearer
	// Has to return apperrors.ErrInvalidGrant if grant is rejected
	Exchange(ctx context.Context, g oauth2.Grant) (models.IssuedGrant, error)

	// Has to return error if Authorization header does not carry a valid bearer
	Authorize(ctx context.Context, header string) error
}

type fulfillmentService interface {
	// Handle raw fulfillment body, return value is rendered as JSON
	Handle(ctx context.Context, body []byte) (any, error)
}
