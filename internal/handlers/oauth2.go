package handlers

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/handlers/reqctx"
	"github.com/nkiryanov/deskled/internal/handlers/render"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/service/oauth2"
)

//go:embed static/login.html
var loginPage []byte

func handleLoginPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(loginPage)
	})
}

func handleLogin(oauth2Service oauth2Service, l logger.Logger) http.Handler {
	type query struct {
		ClientID     string `json:"client_id" validate:"required"`
		RedirectURI  string `json:"redirect_uri" validate:"required,url"`
		ResponseType string `json:"response_type" validate:"required"`
		State        string `json:"state" validate:"required"`
	}

	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	type response struct {
		RedirectURI string `json:"redirectUri"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		q := query{
			ClientID:     params.Get("client_id"),
			RedirectURI:  params.Get("redirect_uri"),
			ResponseType: params.Get("response_type"),
			State:        params.Get("state"),
		}
		if err := render.Validate(w, q); err != nil {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		redirect, err := oauth2Service.Login(r.Context(), oauth2.LoginRequest{
			ClientID:     q.ClientID,
			RedirectURI:  q.RedirectURI,
			ResponseType: q.ResponseType,
			State:        q.State,
			Username:     data.Username,
			Password:     data.Password,
		})

		switch {
		case err == nil:
			render.JSON(w, response{RedirectURI: redirect})
		case errors.Is(err, apperrors.ErrUnauthorized):
			l.Warn("Login rejected", "error", err, "request_id", reqctx.RequestID(r.Context()))
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		default:
			l.Error("Failed to login", "error", err, "request_id", reqctx.RequestID(r.Context()))
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleExchange(oauth2Service oauth2Service, l logger.Logger) http.Handler {
	type request struct {
		ClientID     string `json:"client_id" validate:"required"`
		ClientSecret string `json:"client_secret" validate:"required"`
		GrantType    string `json:"grant_type" validate:"required"`
		Code         string `json:"code"`
		RefreshToken string `json:"refresh_token"`
	}

	type response struct {
		TokenType    string `json:"token_type"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token,omitempty"`
		ExpiresIn    int64  `json:"expires_in"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render.ServiceError(w, "Invalid form", http.StatusBadRequest)
			return
		}

		data := request{
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			GrantType:    r.PostForm.Get("grant_type"),
			Code:         r.PostForm.Get("code"),
			RefreshToken: r.PostForm.Get("refresh_token"),
		}
		if err := render.Validate(w, data); err != nil {
			return
		}

		issued, err := oauth2Service.Exchange(r.Context(), oauth2.Grant{
			ClientID:     data.ClientID,
			ClientSecret: data.ClientSecret,
			GrantType:    data.GrantType,
			Code:         data.Code,
			RefreshToken: data.RefreshToken,
		})

		switch {
		case err == nil:
			render.JSON(w, response{
				TokenType:    "Bearer",
				AccessToken:  issued.Bearer.Token,
				RefreshToken: issued.Refresh,
				ExpiresIn:    int64(issued.ExpiresIn.Seconds()),
			})
		case errors.Is(err, apperrors.ErrInvalidGrant):
			l.Warn("Grant rejected", "error", err, "grant_type", data.GrantType, "request_id", reqctx.RequestID(r.Context()))
			render.OAuthError(w, render.InvalidGrant, http.StatusBadRequest)
		default:
			l.Error("Failed to exchange grant", "error", err, "request_id", reqctx.RequestID(r.Context()))
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
