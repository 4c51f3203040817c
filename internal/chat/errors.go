package chat

import (
	"errors"
	"fmt"

	"github.com/xaenox/gpt-vault/internal/models"
)

var (
	ErrUploadLimitExceeded = errors.New("upload limit exceeded")
	ErrBusy                = errors.New("assistant is still typing")
	ErrNoConversation      = errors.New("no active conversation")
	ErrConversationMissing = errors.New("conversation not found")
	ErrIdentityChanged     = errors.New("identity changed before the reply")
)

// UploadLimitError reports the limit a submission went over.
type UploadLimitError struct {
	Limit     models.Limit
	Requested int
}

func (e *UploadLimitError) Error() string {
	return fmt.Sprintf("upload limit exceeded: %d files, maximum %s", e.Requested, e.Limit)
}

func (e *UploadLimitError) Is(target error) bool {
	return target == ErrUploadLimitExceeded
}
