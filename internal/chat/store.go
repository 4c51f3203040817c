// Package chat keeps the conversations of the logged in identity and runs
// the exchange between the user and the assistant.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/storage"
)

const (
	DefaultTitle   = "Nova Conversa"
	Greeting       = "Olá! Eu sou seu assistente GPT personalizado. Como posso ajudá-lo hoje?"
	ClearedMessage = "Chat limpo! Como posso ajudá-lo?"

	titleLength = 20
)

func ConversationsKey(identityID string) string {
	return "gpt-conversations-" + identityID
}

// Target pins the conversation an assistant reply belongs to.
type Target struct {
	IdentityID     string
	ConversationID string
}

// Store holds the conversation list of a single identity. Every mutation
// writes the whole list back before returning.
type Store struct {
	mu            sync.RWMutex
	storage       storage.Storage
	logger        *zap.Logger
	now           func() time.Time
	identityID    string
	conversations []models.Conversation
	activeID      string
}

func NewStore(st storage.Storage, logger *zap.Logger, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage: st,
		logger:  logger,
		now:     now,
	}
}

// LoadForIdentity replaces the in-memory state with the persisted list of
// identityID, creating a greeting conversation when there is none.
func (s *Store) LoadForIdentity(ctx context.Context, identityID string) ([]models.Conversation, error) {
	data, err := s.storage.Get(ctx, ConversationsKey(identityID))
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	var convs []models.Conversation
	if data != nil {
		if err := json.Unmarshal(data, &convs); err != nil {
			s.logger.Warn("Discarding unreadable conversations",
				zap.Error(err),
				zap.String("identity_id", identityID))
			convs = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.identityID = identityID
	if len(convs) == 0 {
		convs = []models.Conversation{s.newConversation()}
		if err := s.save(ctx, convs); err != nil {
			return nil, err
		}
	}
	s.conversations = convs
	s.activeID = convs[0].ID
	return copyConversations(s.conversations), nil
}

// Reset forgets the loaded identity without touching storage.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identityID = ""
	s.conversations = nil
	s.activeID = ""
}

func (s *Store) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConversations(s.conversations)
}

func (s *Store) Active() (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(s.activeID)
	if idx < 0 {
		return models.Conversation{}, false
	}
	return copyConversation(s.conversations[idx]), true
}

func (s *Store) ActiveMessages() []models.Message {
	c, ok := s.Active()
	if !ok {
		return nil
	}
	return c.Messages
}

func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrConversationMissing
	}
	s.activeID = id
	return nil
}

func (s *Store) AppendUserMessage(ctx context.Context, content string, attachments []models.Attachment) (models.Message, error) {
	msg, _, err := s.Post(ctx, content, attachments)
	return msg, err
}

// Post appends a user message to the active conversation and returns where
// the reply to it must go.
func (s *Store) Post(ctx context.Context, content string, attachments []models.Attachment) (models.Message, Target, error) {
	msg := models.Message{
		ID:          uuid.New().String(),
		Role:        models.MessageRoleUser,
		Content:     content,
		Timestamp:   s.now(),
		Attachments: append([]models.Attachment(nil), attachments...),
	}
	if len(msg.Attachments) == 0 {
		msg.Attachments = nil
	}

	target, err := s.mutateActive(ctx, func(c *models.Conversation) {
		if c.Title == DefaultTitle {
			c.Title = truncate(content, titleLength)
		}
		c.Messages = append(c.Messages, msg)
	})
	if err != nil {
		return models.Message{}, Target{}, err
	}
	return msg, target, nil
}

func (s *Store) AppendAssistantMessage(ctx context.Context, content string) (models.Message, error) {
	msg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.MessageRoleAssistant,
		Content:   content,
		Timestamp: s.now(),
	}

	_, err := s.mutateActive(ctx, func(c *models.Conversation) {
		c.Messages = append(c.Messages, msg)
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Reply appends an assistant message to the conversation named by target,
// whichever conversation is active now. If the store has switched identity
// since, the message is written to the persisted list of target.IdentityID
// and ErrIdentityChanged is returned.
func (s *Store) Reply(ctx context.Context, target Target, content string) (models.Message, error) {
	msg := s.assistantMessage(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identityID != target.IdentityID {
		if err := s.appendPersisted(ctx, target, msg); err != nil {
			return models.Message{}, err
		}
		return msg, ErrIdentityChanged
	}

	idx := s.indexOf(target.ConversationID)
	if idx < 0 {
		return models.Message{}, ErrConversationMissing
	}
	next := copyConversations(s.conversations)
	next[idx].Messages = append(next[idx].Messages, msg)
	if err := s.save(ctx, next); err != nil {
		return models.Message{}, err
	}
	s.conversations = next
	return msg, nil
}

func (s *Store) appendPersisted(ctx context.Context, target Target, msg models.Message) error {
	data, err := s.storage.Get(ctx, ConversationsKey(target.IdentityID))
	if err != nil {
		return fmt.Errorf("failed to read conversations: %w", err)
	}
	if data == nil {
		return ErrConversationMissing
	}

	var convs []models.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return fmt.Errorf("failed to decode conversations: %w", err)
	}
	for i := range convs {
		if convs[i].ID == target.ConversationID {
			convs[i].Messages = append(convs[i].Messages, msg)
			return s.saveFor(ctx, target.IdentityID, convs)
		}
	}
	return ErrConversationMissing
}

// Clear leaves the conversation with a single greeting and the default title.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(conversationID)
	if idx < 0 {
		return ErrConversationMissing
	}

	next := copyConversations(s.conversations)
	next[idx].Title = DefaultTitle
	next[idx].Messages = []models.Message{s.assistantMessage(ClearedMessage)}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.conversations = next
	return nil
}

// StartNew prepends a fresh conversation and selects it.
func (s *Store) StartNew(ctx context.Context) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identityID == "" {
		return models.Conversation{}, ErrNoConversation
	}

	conv := s.newConversation()
	next := append([]models.Conversation{conv}, copyConversations(s.conversations)...)
	if err := s.save(ctx, next); err != nil {
		return models.Conversation{}, err
	}
	s.conversations = next
	s.activeID = conv.ID
	return copyConversation(conv), nil
}

func (s *Store) mutateActive(ctx context.Context, fn func(c *models.Conversation)) (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.activeID)
	if idx < 0 {
		return Target{}, ErrNoConversation
	}

	next := copyConversations(s.conversations)
	fn(&next[idx])
	if err := s.save(ctx, next); err != nil {
		return Target{}, err
	}
	s.conversations = next
	return Target{IdentityID: s.identityID, ConversationID: s.activeID}, nil
}

func (s *Store) save(ctx context.Context, convs []models.Conversation) error {
	return s.saveFor(ctx, s.identityID, convs)
}

func (s *Store) saveFor(ctx context.Context, identityID string, convs []models.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	if err := s.storage.Set(ctx, ConversationsKey(identityID), data); err != nil {
		s.logger.Error("Failed to save conversations",
			zap.Error(err),
			zap.String("identity_id", identityID))
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

func (s *Store) newConversation() models.Conversation {
	return models.Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		CreatedAt: s.now(),
		Messages:  []models.Message{s.assistantMessage(Greeting)},
	}
}

func (s *Store) assistantMessage(content string) models.Message {
	return models.Message{
		ID:        uuid.New().String(),
		Role:      models.MessageRoleAssistant,
		Content:   content,
		Timestamp: s.now(),
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func copyConversation(c models.Conversation) models.Conversation {
	c.Messages = append([]models.Message(nil), c.Messages...)
	return c
}

func copyConversations(in []models.Conversation) []models.Conversation {
	if in == nil {
		return nil
	}
	out := make([]models.Conversation, len(in))
	for i, c := range in {
		out[i] = copyConversation(c)
	}
	return out
}
