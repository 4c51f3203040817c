// Package identity owns the roster of accounts, their credentials and the
// per-client sessions built on top of them.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/storage"
)

const rosterKey = "gpt-roster"

type Options struct {
	// LoginDelay is the simulated latency of Authenticate.
	LoginDelay time.Duration
	Delay      clock.Delay
	Now        clock.Now
	HashCost   int
	Seed       []Account
}

// Draft is the input of Add.
type Draft struct {
	Name          string
	Email         string
	Role          models.Role
	UploadLimit   models.Limit
	DownloadLimit models.Limit
	// Secret is optional; an identity without one cannot log in.
	Secret string
}

// Patch lists the fields Update may change. Nil fields are left untouched.
type Patch struct {
	Name          *string
	Email         *string
	Role          *models.Role
	UploadLimit   *models.Limit
	DownloadLimit *models.Limit
}

type roster struct {
	Identities  []models.Identity `json:"identities"`
	Credentials map[string]string `json:"credentials"`
}

type Store struct {
	mu          sync.RWMutex
	storage     storage.Storage
	logger      *zap.Logger
	opts        Options
	identities  []models.Identity
	credentials map[string]string
	gates       map[*Gate]struct{}
}

// NewStore loads the persisted roster, seeding it when storage has none.
func NewStore(ctx context.Context, st storage.Storage, logger *zap.Logger, opts Options) (*Store, error) {
	if opts.Delay == nil {
		opts.Delay = clock.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Seed == nil {
		opts.Seed = DefaultAccounts()
	}

	s := &Store{
		storage:     st,
		logger:      logger,
		opts:        opts,
		credentials: make(map[string]string),
		gates:       make(map[*Gate]struct{}),
	}

	data, err := st.Get(ctx, rosterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	if data != nil {
		var r roster
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode roster: %w", err)
		}
		s.identities = r.Identities
		if r.Credentials != nil {
			s.credentials = r.Credentials
		}
		logger.Info("Roster loaded", zap.Int("identities", len(s.identities)))
		return s, nil
	}

	for _, acc := range opts.Seed {
		id := acc.Identity
		id.Permissions = id.Permissions.Normalize(id.Role)
		if acc.Secret != "" {
			hash, err := s.hash(acc.Secret)
			if err != nil {
				return nil, err
			}
			s.credentials[id.Email] = hash
		}
		s.identities = append(s.identities, id)
	}
	if err := s.save(ctx, s.identities, s.credentials); err != nil {
		return nil, err
	}
	logger.Info("Roster seeded", zap.Int("identities", len(s.identities)))
	return s, nil
}

// Attach registers a client's gate so that Update and Delete keep it in sync.
func (s *Store) Attach(g *Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[g] = struct{}{}
}

func (s *Store) Detach(g *Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gates, g)
}

// Authenticate checks the secret for email after the simulated login delay
// and stamps LastLogin on success.
func (s *Store) Authenticate(ctx context.Context, email, secret string) (models.Identity, error) {
	if err := s.opts.Delay(ctx, s.opts.LoginDelay); err != nil {
		return models.Identity{}, err
	}
	email = strings.TrimSpace(email)

	s.mu.RLock()
	hash, ok := s.credentials[email]
	s.mu.RUnlock()
	if !ok {
		return models.Identity{}, ErrAuthFailure
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return models.Identity{}, ErrAuthFailure
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByEmail(email)
	if idx < 0 {
		s.logger.Warn("Credential without roster entry", zap.String("email", email))
		return models.Identity{}, ErrAuthFailure
	}

	next := append([]models.Identity(nil), s.identities...)
	now := s.opts.Now()
	next[idx].LastLogin = &now
	if err := s.save(ctx, next, s.credentials); err != nil {
		return models.Identity{}, err
	}
	s.identities = next
	return next[idx], nil
}

func (s *Store) List() []models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Identity(nil), s.identities...)
}

func (s *Store) Get(id string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexByID(id)
	if idx < 0 {
		return models.Identity{}, ErrNotFound
	}
	return s.identities[idx], nil
}

func (s *Store) Add(ctx context.Context, draft Draft) (models.Identity, error) {
	draft.Email = strings.TrimSpace(draft.Email)
	if !draft.Role.Valid() {
		draft.Role = models.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexByEmail(draft.Email) >= 0 {
		return models.Identity{}, ErrDuplicateEmail
	}

	id := models.Identity{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(draft.Name),
		Email: draft.Email,
		Role:  draft.Role,
		Permissions: models.Permissions{
			UploadLimit:   draft.UploadLimit,
			DownloadLimit: draft.DownloadLimit,
		}.Normalize(draft.Role),
		CreatedAt: s.opts.Now(),
	}

	creds := s.credentials
	if draft.Secret != "" {
		hash, err := s.hash(draft.Secret)
		if err != nil {
			return models.Identity{}, err
		}
		creds = copyCredentials(s.credentials)
		creds[id.Email] = hash
	}

	next := append(append([]models.Identity(nil), s.identities...), id)
	if err := s.save(ctx, next, creds); err != nil {
		return models.Identity{}, err
	}
	s.identities = next
	s.credentials = creds

	s.logger.Info("Identity added",
		zap.String("identity_id", id.ID),
		zap.String("role", string(id.Role)))
	return id, nil
}

// Update merges patch into the identity and refreshes every session that
// still holds it once the roster is saved.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (models.Identity, error) {
	s.mu.Lock()

	idx := s.indexByID(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.Identity{}, ErrNotFound
	}

	merged := s.identities[idx]
	oldEmail := merged.Email
	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		merged.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Role != nil && patch.Role.Valid() {
		merged.Role = *patch.Role
	}
	if patch.UploadLimit != nil {
		merged.Permissions.UploadLimit = *patch.UploadLimit
	}
	if patch.DownloadLimit != nil {
		merged.Permissions.DownloadLimit = *patch.DownloadLimit
	}
	merged.Permissions = merged.Permissions.Normalize(merged.Role)

	if other := s.indexByEmail(merged.Email); other >= 0 && other != idx {
		s.mu.Unlock()
		return models.Identity{}, ErrDuplicateEmail
	}

	creds := s.credentials
	if merged.Email != oldEmail {
		creds = copyCredentials(s.credentials)
		if hash, ok := creds[oldEmail]; ok {
			delete(creds, oldEmail)
			creds[merged.Email] = hash
		}
	}

	next := append([]models.Identity(nil), s.identities...)
	next[idx] = merged
	if err := s.save(ctx, next, creds); err != nil {
		s.mu.Unlock()
		return models.Identity{}, err
	}
	s.identities = next
	s.credentials = creds
	gates := s.gatesHolding(id)
	s.mu.Unlock()

	for _, g := range gates {
		if _, err := g.Refresh(ctx, merged); err != nil {
			s.logger.Error("Failed to refresh session",
				zap.Error(err),
				zap.String("identity_id", id),
				zap.String("session_key", g.Key()))
		}
	}
	return merged, nil
}

// Delete removes the identity and logs out every session that holds it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	idx := s.indexByID(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	removed := s.identities[idx]
	next := make([]models.Identity, 0, len(s.identities)-1)
	next = append(next, s.identities[:idx]...)
	next = append(next, s.identities[idx+1:]...)

	creds := copyCredentials(s.credentials)
	delete(creds, removed.Email)

	if err := s.save(ctx, next, creds); err != nil {
		s.mu.Unlock()
		return err
	}
	s.identities = next
	s.credentials = creds
	gates := s.gatesHolding(id)
	s.mu.Unlock()

	for _, g := range gates {
		if err := g.Terminate(ctx); err != nil {
			s.logger.Error("Failed to terminate session",
				zap.Error(err),
				zap.String("identity_id", id),
				zap.String("session_key", g.Key()))
		}
	}

	s.logger.Info("Identity deleted", zap.String("identity_id", id))
	return nil
}

func (s *Store) save(ctx context.Context, identities []models.Identity, creds map[string]string) error {
	data, err := json.Marshal(roster{Identities: identities, Credentials: creds})
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	if err := s.storage.Set(ctx, rosterKey, data); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

func (s *Store) hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.opts.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func (s *Store) indexByID(id string) int {
	for i := range s.identities {
		if s.identities[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexByEmail(email string) int {
	for i := range s.identities {
		if s.identities[i].Email == email {
			return i
		}
	}
	return -1
}

func (s *Store) gatesHolding(id string) []*Gate {
	var out []*Gate
	for g := range s.gates {
		if g.holds(id) {
			out = append(out, g)
		}
	}
	return out
}

func copyCredentials(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
