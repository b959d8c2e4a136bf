/*
Package handler provides HTTP handler functions for issuing identity tokens.

Guests pick (or are given) a name and receive a token at once. Registered users
register and log in against the account store when a database is configured.
*/
package handler

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"hzarena/internal/app/db"
	"hzarena/internal/app/user"
	"hzarena/internal/pkg/auth/jwt"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/randx"
	"hzarena/internal/pkg/req"
	"hzarena/internal/pkg/resp"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 50
)

type GuestInput struct {
	Name string `json:"name,omitempty"`
}

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by every successful authentication.
type TokenResponse struct {
	Token    string        `json:"token"`
	Identity user.Identity `json:"identity"`
}

func respondToken(w http.ResponseWriter, r *http.Request, deps *AppDeps, id user.Identity) {
	token, err := jwt.GenerateToken(id, deps.Config.JWTSecret, deps.Config.TokenTTL)
	if err != nil {
		logx.Error(err, "failed to generate token", "identity", id.String())
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}
	resp.RespondSuccess(w, r, TokenResponse{Token: token, Identity: id})
}

// HandleGuest issues a guest identity token. An empty name gets a random guest name.
func HandleGuest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input GuestInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		name := input.Name
		if name == "" {
			generated, err := randx.GuestName()
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
				return
			}
			name = generated
		}

		if !randx.IsValidName(name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		respondToken(w, r, deps, user.NewIdentity(name, user.SourceGuest))
	}
}

// HandleRegister creates an account and issues a registered identity token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Accounts == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRegisteredUnavailable))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidName(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < minPasswordLength || passwordLen > maxPasswordLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		if err := deps.Accounts.Register(r.Context(), input.Username, input.Password); err != nil {
			if errors.Is(err, db.ErrAccountExists) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUsernameTaken))
				return
			}

			logx.Error(err, "failed to create account")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		respondToken(w, r, deps, user.NewIdentity(input.Username, user.SourceRegistered))
	}
}

// HandleLogin verifies credentials and issues a registered identity token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Accounts == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRegisteredUnavailable))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Accounts.Authenticate(r.Context(), input.Username, input.Password); err != nil {
			if !errors.Is(err, db.ErrBadCredentials) {
				logx.Error(err, "login: account lookup failed", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			logx.Warn("login: bad credentials", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		respondToken(w, r, deps, user.NewIdentity(input.Username, user.SourceRegistered))
	}
}
