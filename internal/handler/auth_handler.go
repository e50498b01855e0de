/*
Package handler provides HTTP handler functions for account registration and sign-in.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/auth/jwt"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/req"
	"dmchat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// CredentialsInput is the body of register and login requests.
type CredentialsInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SolveChallengeInput is a proof-of-work solution.
type SolveChallengeInput struct {
	Nonce   string `json:"nonce" validate:"required"`
	Counter string `json:"counter" validate:"required,max=64"`
}

// HandleGetChallenge issues a proof-of-work nonce. With the gate disabled it
// reports difficulty 0 and no nonce.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.PowGate.Enabled() {
			resp.RespondSuccess(w, r, map[string]any{"difficulty": 0})
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      deps.PowGate.Challenge(),
			"difficulty": deps.PowGate.Difficulty(),
		})
	}
}

// HandleSolveChallenge trades a proof-of-work solution for a single-use proof token.
func HandleSolveChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SolveChallengeInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.PowGate.Solve(input.Nonce, input.Counter)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrPowChallengeInvalid, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"token": token})
	}
}

// HandleRegister creates an account, signs the caller in and returns the identity.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		if deps.PowGate.Enabled() && !deps.PowGate.Redeem(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}

		account, err := deps.Users.Create(r.Context(), input.Username, string(hashedPassword))
		if err != nil {
			if errors.Is(err, user.ErrUsernameTaken) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user")
			resp.RespondError(w, r, errs.NewError(errs.ErrStorage))
			return
		}

		logx.Info("account registered", "user_id", account.ID)
		signIn(w, r, deps, account.Identity())
	}
}

// HandleLogin verifies the username and password and signs the caller in.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Users.GetByUsername(r.Context(), input.Username)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				logx.Error(err, "login: user fetch failed", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrStorage))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidLogin))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidLogin))
			return
		}

		signIn(w, r, deps, account.Identity())
	}
}

// HandleLogout clears the credential cookie.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     jwt.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   !deps.Config.IsDevelopment(),
			SameSite: http.SameSiteLaxMode,
		})
		resp.RespondSuccess(w, r, nil)
	}
}

// signIn issues a credential for identity as both a cookie and the response body.
func signIn(w http.ResponseWriter, r *http.Request, deps *AppDeps, identity user.Identity) {
	token, err := deps.Verifier.Issue(identity)
	if err != nil {
		logx.Error(err, "jwt generation failed", "user_id", identity.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     jwt.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(jwt.UserIdentityExpiration),
		HttpOnly: true,
		Secure:   !deps.Config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})

	resp.RespondSuccess(w, r, map[string]any{
		"token": token,
		"user":  identity,
	})
}
