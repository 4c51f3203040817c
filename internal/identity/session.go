package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/storage"
)

// DefaultSessionKey is where a single-user client keeps its session.
const DefaultSessionKey = "gpt-user"

// Gate tracks the identity authenticated in one running client and keeps it
// persisted under its own key.
type Gate struct {
	mu      sync.RWMutex
	key     string
	storage storage.Storage
	logger  *zap.Logger
	current *models.Identity
}

func NewGate(st storage.Storage, key string, logger *zap.Logger) *Gate {
	if key == "" {
		key = DefaultSessionKey
	}
	return &Gate{
		key:     key,
		storage: st,
		logger:  logger,
	}
}

func (g *Gate) Key() string {
	return g.key
}

// Current returns a copy of the session identity, or nil when logged out.
func (g *Gate) Current() *models.Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.current == nil {
		return nil
	}
	c := *g.current
	return &c
}

// Restore loads the persisted session, if any.
func (g *Gate) Restore(ctx context.Context) (*models.Identity, error) {
	data, err := g.storage.Get(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var restored models.Identity
	if err := json.Unmarshal(data, &restored); err != nil {
		g.logger.Warn("Dropping unreadable session",
			zap.Error(err),
			zap.String("key", g.key))
		return nil, g.storage.Delete(ctx, g.key)
	}

	g.mu.Lock()
	g.current = &restored
	g.mu.Unlock()

	return g.Current(), nil
}

// Establish persists identity as the session. Gate mutations hold the lock
// across the storage write so memory and storage agree.
func (g *Gate) Establish(ctx context.Context, identity models.Identity) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.establishLocked(ctx, identity)
}

// Refresh replaces the session identity only if it still belongs to
// identity.ID. It reports whether the session was refreshed.
func (g *Gate) Refresh(ctx context.Context, identity models.Identity) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil || g.current.ID != identity.ID {
		return false, nil
	}
	return true, g.establishLocked(ctx, identity)
}

func (g *Gate) establishLocked(ctx context.Context, identity models.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := g.storage.Set(ctx, g.key, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	g.current = &identity
	return nil
}

func (g *Gate) Terminate(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.current = nil
	if err := g.storage.Delete(ctx, g.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (g *Gate) holds(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current != nil && g.current.ID == id
}
