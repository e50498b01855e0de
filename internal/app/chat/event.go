package chat

import (
	"errors"
	"time"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/errs"
)

// InboundEvent is a client frame. A frame carrying only Token is an in-band
// authentication request; any other frame is a send.
type InboundEvent struct {
	// Token is a signed credential used to authenticate the connection.
	Token string `json:"token,omitempty"`

	// Recipient is the addressee's user id.
	Recipient string `json:"recipient"`

	// Text is the optional message body.
	Text string `json:"text,omitempty"`

	// Attachment is the optional file.
	Attachment *AttachmentPayload `json:"attachment,omitempty"`

	// TempID is an optional client correlation id echoed back in the ack frame.
	TempID string `json:"tempId,omitempty"`
}

// isAuth reports whether the event is an authentication request rather than a send.
func (e InboundEvent) isAuth() bool {
	return e.Token != "" && e.Recipient == "" && e.Text == "" && e.Attachment == nil
}

// hasAttachment reports whether the event carries attachment content.
func (e InboundEvent) hasAttachment() bool {
	return e.Attachment != nil && e.Attachment.Data != ""
}

// PresenceFrame is broadcast whenever the set of online identities may have changed.
type PresenceFrame struct {
	Online []user.Identity `json:"online"`
}

// AckFrame confirms persistence of a send to the sending connection.
type AckFrame struct {
	Ack Ack `json:"ack"`
}

// Ack correlates a client's temporary id with the persisted message id.
type Ack struct {
	TempID    string    `json:"tempId"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthenticatedFrame tells a connection which identity it is now bound to.
type AuthenticatedFrame struct {
	Authenticated user.Identity `json:"authenticated"`
}

// ErrorFrame reports a failed event to the connection that sent it.
type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the client-facing part of an application error.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// newErrorFrame converts err into an ErrorFrame. Causes are never exposed.
func newErrorFrame(err error) ErrorFrame {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown)
	}
	return ErrorFrame{Error: ErrorBody{Code: customErr.Code, Message: customErr.Message}}
}
