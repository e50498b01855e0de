package handler

import (
	"net/http"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/auth/jwt"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/resp"
)

// RequireIdentity rejects anonymous requests with ErrUnauthorized.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := jwt.IdentityFromContext(r); !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleGetProfile returns the caller's identity.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := jwt.IdentityFromContext(r)
		resp.RespondSuccess(w, r, map[string]any{"user": identity})
	}
}

// HandleListPeople returns every other account, online or not, so clients can
// open conversations with offline users.
func HandleListPeople(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := jwt.IdentityFromContext(r)

		people, err := deps.Users.List(r.Context())
		if err != nil {
			logx.Error(err, "failed to list users")
			resp.RespondError(w, r, errs.NewError(errs.ErrStorage))
			return
		}

		others := make([]user.Identity, 0, len(people))
		for _, p := range people {
			if p.ID != caller.ID {
				others = append(others, p)
			}
		}

		resp.RespondSuccess(w, r, map[string]any{"people": others})
	}
}
