package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"dmchat/internal/app/message"
	"dmchat/internal/pkg/clock"
	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
	"dmchat/internal/pkg/randx"
)

// MaxTextBytes is the maximum size of a message body.
const MaxTextBytes = 5000

// discardTimeout bounds removal of an attachment whose message failed to persist.
const discardTimeout = 5 * time.Second

// AttachmentStore persists attachment bytes under a generated name.
type AttachmentStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// Router validates inbound send events, persists them and delivers them to the
// recipient's live connections.
type Router struct {
	registry    *Registry
	store       message.Store
	attachments AttachmentStore
	clock       clock.Clock
	logger      zerolog.Logger
}

// NewRouter returns a Router. attachments may be nil, in which case every
// attachment is recorded as failed.
func NewRouter(registry *Registry, store message.Store, attachments AttachmentStore, clk clock.Clock) *Router {
	return &Router{
		registry:    registry,
		store:       store,
		attachments: attachments,
		clock:       clk,
		logger:      logx.Component("Router"),
	}
}

// HandleInbound processes one send event from conn and returns the persisted message.
//
// An attachment that cannot be decoded fails the call unless there is text to
// fall back on. An attachment that decodes but cannot be stored is logged and
// the message is persisted with AttachmentFailed set. Live delivery is best
// effort; a recipient with no live connection reads the message later through history.
func (rt *Router) HandleInbound(ctx context.Context, conn *Connection, event InboundEvent) (message.Message, error) {
	identity, ok := conn.Identity()
	if !ok {
		return message.Message{}, errs.NewError(errs.ErrMalformedEvent)
	}

	if event.Recipient == "" || (event.Text == "" && !event.hasAttachment()) {
		return message.Message{}, errs.NewError(errs.ErrMalformedEvent)
	}

	if len(event.Text) > MaxTextBytes {
		return message.Message{}, errs.NewError(errs.ErrMessageTooLong)
	}

	now := rt.clock.Now().UTC().Truncate(time.Microsecond)

	msg := message.Message{
		Sender:    identity.ID,
		Recipient: event.Recipient,
		Text:      event.Text,
		CreatedAt: now,
	}

	if event.hasAttachment() {
		data, err := decodeAttachment(event.Attachment.Data)
		if err != nil {
			conn.Logger().Info().Err(err).Str("file_name", event.Attachment.Name).Msg("Attachment rejected")
			if msg.Text == "" {
				return message.Message{}, err
			}
		} else if name, err := rt.storeAttachment(ctx, event.Attachment.Name, data, now); err != nil {
			conn.Logger().Warn().Err(err).Str("file_name", event.Attachment.Name).Msg("Attachment not stored")
			msg.AttachmentFailed = true
		} else {
			msg.File = name
		}
	}

	id, err := rt.store.Append(ctx, msg)
	if err != nil {
		conn.Logger().Error().Err(err).Msg("Message persistence failed")
		rt.discardAttachment(msg.File)
		return message.Message{}, errs.Wrap(errs.ErrStorage, err)
	}
	msg.ID = id

	delivered := rt.deliver(msg)

	rt.logger.Debug().
		Str("message_id", msg.ID).
		Str("recipient", msg.Recipient).
		Int("delivered", delivered).
		Msg("Message routed")

	return msg, nil
}

func (rt *Router) storeAttachment(ctx context.Context, originalName string, data []byte, now time.Time) (string, error) {
	if rt.attachments == nil {
		return "", errs.NewError(errs.ErrStorage)
	}

	name, err := randx.AttachmentName(now, originalName)
	if err != nil {
		return "", errs.Wrap(errs.ErrStorage, err)
	}

	if err := rt.attachments.Put(ctx, name, data); err != nil {
		var customErr *errs.CustomError
		if errors.As(err, &customErr) {
			return "", customErr
		}
		return "", errs.Wrap(errs.ErrStorage, err)
	}

	return name, nil
}

// discardAttachment removes a stored attachment whose message was never persisted.
func (rt *Router) discardAttachment(name string) {
	if name == "" || rt.attachments == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), discardTimeout)
	defer cancel()

	if err := rt.attachments.Delete(ctx, name); err != nil {
		rt.logger.Warn().Err(err).Str("file_name", name).Msg("Orphaned attachment not removed")
	}
}

// deliver queues msg on every live connection of its recipient.
func (rt *Router) deliver(msg message.Message) int {
	conns := rt.registry.FindByUser(msg.Recipient)
	if len(conns) == 0 {
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.SendJSON(msg); err != nil {
			conn.Logger().Warn().Err(err).Str("message_id", msg.ID).Msg("Live delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}
