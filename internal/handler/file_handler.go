package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"dmchat/internal/app/storage"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/randx"
	"dmchat/internal/pkg/resp"
)

// HandleGetFile serves an attachment by its generated name. Drivers that can
// presign answer with a redirect; others stream the content.
func HandleGetFile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !randx.IsValidAttachmentName(name) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if presigner, ok := deps.Attachments.(storage.Presigner); ok {
			url, err := presigner.PresignDownload(r.Context(), name, storage.PresignedURLDuration)
			if err != nil {
				resp.RespondError(w, r, errs.Wrap(errs.ErrStorage, err))
				return
			}
			http.Redirect(w, r, url, http.StatusFound)
			return
		}

		content, err := deps.Attachments.Open(r.Context(), name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrAttachmentNotFound))
				return
			}
			resp.RespondError(w, r, errs.Wrap(errs.ErrStorage, err))
			return
		}
		defer content.Close()

		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, content); err != nil {
			logx.Warn("attachment stream interrupted", "name", name, "error", err)
		}
	}
}
