// Package shell composes identity, chat and admin into one running client:
// the unit a presentation layer (Telegram chat, terminal) talks to.
package shell

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/admin"
	"github.com/xaenox/gpt-vault/internal/chat"
	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/identity"
	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/responder"
	"github.com/xaenox/gpt-vault/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMissingFields    = errors.New("email and password are required")
)

type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenMain  Screen = "main"
)

type Tab string

const (
	TabChat  Tab = "chat"
	TabDemo  Tab = "demo"
	TabAdmin Tab = "admin"
)

// Deps are shared by every client of a process.
type Deps struct {
	Identities  *identity.Store
	Storage     storage.Storage
	Responder   *responder.Responder
	Delay       clock.Delay
	TypingDelay time.Duration
	Now         clock.Now
	Logger      *zap.Logger
}

type Client struct {
	now          clock.Now
	identities   *identity.Store
	gate         *identity.Gate
	chat         *chat.Store
	orchestrator *chat.Orchestrator
	admin        *admin.Service
	logger       *zap.Logger
}

// NewClient creates a client whose session lives under sessionKey. Call
// Close when the client goes away.
func NewClient(deps Deps, sessionKey string) *Client {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Responder == nil {
		deps.Responder = responder.New()
	}
	logger := deps.Logger.With(zap.String("session_key", sessionKey))

	gate := identity.NewGate(deps.Storage, sessionKey, logger)
	deps.Identities.Attach(gate)

	store := chat.NewStore(deps.Storage, logger, deps.Now)
	return &Client{
		now:          deps.Now,
		identities:   deps.Identities,
		gate:         gate,
		chat:         store,
		orchestrator: chat.NewOrchestrator(store, deps.Responder, deps.Delay, deps.TypingDelay, logger),
		admin:        admin.NewService(deps.Identities, logger),
		logger:       logger,
	}
}

func (c *Client) Close() {
	c.identities.Detach(c.gate)
}

// Restore brings back a persisted session. A session whose identity has
// left the roster is dropped; otherwise it is refreshed from the roster.
func (c *Client) Restore(ctx context.Context) (*models.Identity, error) {
	restored, err := c.gate.Restore(ctx)
	if err != nil || restored == nil {
		return nil, err
	}

	current, err := c.identities.Get(restored.ID)
	if errors.Is(err, identity.ErrNotFound) {
		c.logger.Info("Dropping session of removed identity", zap.String("identity_id", restored.ID))
		return nil, c.gate.Terminate(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := c.gate.Establish(ctx, current); err != nil {
		return nil, err
	}
	if _, err := c.chat.LoadForIdentity(ctx, current.ID); err != nil {
		return nil, err
	}
	return &current, nil
}

func (c *Client) Login(ctx context.Context, email, secret string) (models.Identity, error) {
	if strings.TrimSpace(email) == "" || secret == "" {
		return models.Identity{}, ErrMissingFields
	}

	id, err := c.identities.Authenticate(ctx, email, secret)
	if err != nil {
		return models.Identity{}, err
	}
	if err := c.gate.Establish(ctx, id); err != nil {
		return models.Identity{}, err
	}
	if _, err := c.chat.LoadForIdentity(ctx, id.ID); err != nil {
		return models.Identity{}, err
	}

	c.logger.Info("Logged in", zap.String("identity_id", id.ID), zap.String("role", string(id.Role)))
	return id, nil
}

func (c *Client) Logout(ctx context.Context) error {
	c.chat.Reset()
	return c.gate.Terminate(ctx)
}

func (c *Client) Current() *models.Identity {
	return c.gate.Current()
}

func (c *Client) Screen() Screen {
	if c.gate.Current() == nil {
		return ScreenLogin
	}
	return ScreenMain
}

// Tabs lists the main-screen tabs; the admin tab only for admins.
func (c *Client) Tabs() []Tab {
	current := c.gate.Current()
	if current == nil {
		return nil
	}
	tabs := []Tab{TabChat, TabDemo}
	if current.IsAdmin() {
		tabs = append(tabs, TabAdmin)
	}
	return tabs
}

func (c *Client) Catalog() []Category {
	current := c.gate.Current()
	if current == nil {
		return nil
	}
	return Catalog(current.Role)
}

func (c *Client) IsTyping() bool {
	return c.orchestrator.IsTyping()
}

// Submit sends a chat message. Attachments of unsupported types are dropped
// and returned so the caller can warn about them.
func (c *Client) Submit(ctx context.Context, text string, attachments []models.Attachment) (*models.Message, []models.Attachment, error) {
	current, err := c.requireSession()
	if err != nil {
		return nil, nil, err
	}

	accepted, rejected := chat.FilterAttachments(attachments)
	reply, err := c.orchestrator.Submit(ctx, *current, text, accepted)
	return reply, rejected, err
}

func (c *Client) Messages() []models.Message {
	return c.chat.ActiveMessages()
}

func (c *Client) Conversations() []models.Conversation {
	return c.chat.Conversations()
}

func (c *Client) ActiveConversation() (models.Conversation, bool) {
	return c.chat.Active()
}

func (c *Client) Clear(ctx context.Context) error {
	if _, err := c.requireSession(); err != nil {
		return err
	}
	active, ok := c.chat.Active()
	if !ok {
		return chat.ErrNoConversation
	}
	return c.chat.Clear(ctx, active.ID)
}

func (c *Client) NewConversation(ctx context.Context) (models.Conversation, error) {
	if _, err := c.requireSession(); err != nil {
		return models.Conversation{}, err
	}
	return c.chat.StartNew(ctx)
}

func (c *Client) SelectConversation(id string) error {
	if _, err := c.requireSession(); err != nil {
		return err
	}
	return c.chat.Select(id)
}

func (c *Client) Users() ([]models.Identity, error) {
	return c.admin.List(c.gate.Current())
}

func (c *Client) AddUser(ctx context.Context, draft identity.Draft) (models.Identity, error) {
	return c.admin.Add(ctx, c.gate.Current(), draft)
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch identity.Patch) (models.Identity, error) {
	return c.admin.Update(ctx, c.gate.Current(), id, patch)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	err := c.admin.Delete(ctx, c.gate.Current(), id)
	if err == nil && c.gate.Current() == nil {
		c.chat.Reset()
	}
	return err
}

func (c *Client) Stats() (admin.Stats, error) {
	return c.admin.Stats(c.gate.Current(), c.now())
}

func (c *Client) requireSession() (*models.Identity, error) {
	current := c.gate.Current()
	if current == nil {
		return nil, ErrNotAuthenticated
	}
	return current, nil
}
