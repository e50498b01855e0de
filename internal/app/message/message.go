/*
Package message defines the persisted chat message and the store contract the
history endpoint and the message router depend on.
*/
package message

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned when a message carries neither text nor an attachment.
var ErrEmpty = errors.New("message has neither text nor attachment")

// Message is a direct message between two users. It is never mutated once stored.
type Message struct {
	// ID is assigned by the store on Append.
	ID string `json:"id"`

	// Sender is the user id of the author.
	Sender string `json:"sender"`

	// Recipient is the user id of the addressee.
	Recipient string `json:"recipient"`

	// Text is the message body, possibly empty when File is set.
	Text string `json:"text"`

	// File is the generated attachment name in the attachment store, if any.
	File string `json:"file,omitempty"`

	// AttachmentFailed marks a message whose attachment could not be stored.
	AttachmentFailed bool `json:"attachmentFailed,omitempty"`

	// CreatedAt is the server receive time.
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the content invariant: the message carries text, a stored
// attachment or a failed attachment marker.
func (m Message) Validate() error {
	if m.Text == "" && m.File == "" && !m.AttachmentFailed {
		return ErrEmpty
	}
	return nil
}

// Store is the durable append-only message log.
type Store interface {
	// Append persists msg and returns its generated id.
	Append(ctx context.Context, msg Message) (string, error)

	// QueryBetween returns every message exchanged between userA and userB,
	// in either direction, ascending by CreatedAt.
	QueryBetween(ctx context.Context, userA, userB string) ([]Message, error)
}
