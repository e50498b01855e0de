package chat

import (
	"encoding/base64"
	"strings"

	"dmchat/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed decoded attachment size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed decoded attachment size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	dataURLMarker = ";base64,"
)

// AttachmentPayload is the attachment carried by an inbound send event.
type AttachmentPayload struct {
	// Name is the client-side file name. Only its extension is kept.
	Name string `json:"name"`

	// Data is the file content, either plain base64 or a base64 data URL.
	Data string `json:"data"`
}

// decodeAttachment returns the raw bytes of data, which may be plain base64
// or a "data:<mime>;base64,<payload>" URL.
func decodeAttachment(data string) ([]byte, *errs.CustomError) {
	payload := data

	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, dataURLMarker)
		if idx < 0 {
			return nil, errs.NewError(errs.ErrAttachmentInvalid)
		}
		payload = payload[idx+len(dataURLMarker):]
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errs.NewError(errs.ErrAttachmentInvalid)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxAttachmentSize+2 {
		return nil, errs.NewError(errs.ErrAttachmentTooLarge, MaxAttachmentSizeMB)
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errs.Wrap(errs.ErrAttachmentInvalid, err)
		}
	}

	if len(decoded) > MaxAttachmentSize {
		return nil, errs.NewError(errs.ErrAttachmentTooLarge, MaxAttachmentSizeMB)
	}

	return decoded, nil
}
