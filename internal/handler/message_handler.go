package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dmchat/internal/app/message"
	"dmchat/internal/pkg/auth/jwt"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/resp"
)

// HandleGetHistory returns the conversation between the caller and {userId},
// oldest first. Clients merge it with live deliveries by message id.
func HandleGetHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := jwt.IdentityFromContext(r)

		peer := chi.URLParam(r, "userId")
		if peer == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		messages, err := deps.Messages.QueryBetween(r.Context(), caller.ID, peer)
		if err != nil {
			logx.Error(err, "failed to query history", "user_id", caller.ID, "peer_id", peer)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorage))
			return
		}

		if messages == nil {
			messages = []message.Message{}
		}

		resp.RespondSuccess(w, r, map[string]any{"messages": messages})
	}
}
