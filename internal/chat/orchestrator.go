package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/responder"
)

// Orchestrator runs one exchange at a time: the user message is appended,
// the assistant "types" for a while, then its reply is appended.
type Orchestrator struct {
	store       *Store
	responder   *responder.Responder
	delay       clock.Delay
	typingDelay time.Duration
	logger      *zap.Logger
	typing      atomic.Bool
}

func NewOrchestrator(store *Store, resp *responder.Responder, delay clock.Delay, typingDelay time.Duration, logger *zap.Logger) *Orchestrator {
	if delay == nil {
		delay = clock.Sleep
	}
	return &Orchestrator{
		store:       store,
		responder:   resp,
		delay:       delay,
		typingDelay: typingDelay,
		logger:      logger,
	}
}

func (o *Orchestrator) IsTyping() bool {
	return o.typing.Load()
}

// Submit returns the assistant reply, or nil when there was nothing to send.
// The reply goes to the conversation the message was posted in, even if
// another one was selected or the session changed while typing.
// Non-admin callers may not attach more files than their upload limit in a
// single submission.
func (o *Orchestrator) Submit(ctx context.Context, caller models.Identity, text string, attachments []models.Attachment) (*models.Message, error) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return nil, nil
	}

	if !caller.IsAdmin() && len(attachments) > 0 {
		limit := caller.Permissions.UploadLimit
		if !limit.Bounded() {
			limit = 0
		}
		if len(attachments) > int(limit) {
			return nil, &UploadLimitError{Limit: limit, Requested: len(attachments)}
		}
	}

	if !o.typing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.typing.Store(false)

	_, target, err := o.store.Post(ctx, text, attachments)
	if err != nil {
		return nil, err
	}

	if err := o.delay(ctx, o.typingDelay); err != nil {
		return nil, err
	}

	reply := o.responder.Respond(responder.Request{
		Text:        text,
		Attachments: attachments,
		Identity:    caller,
	})
	msg, err := o.store.Reply(ctx, target, reply)
	if errors.Is(err, ErrIdentityChanged) {
		o.logger.Info("Session changed while typing, reply kept with its conversation",
			zap.String("identity_id", caller.ID),
			zap.String("conversation_id", target.ConversationID))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Assistant replied",
		zap.String("identity_id", caller.ID),
		zap.Int("attachments", len(attachments)))
	return &msg, nil
}
