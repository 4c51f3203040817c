// Package admin exposes roster management to admin callers only.
package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/identity"
	"github.com/xaenox/gpt-vault/internal/models"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("name and email are required")
)

// RecentLoginWindow is how far back Stats counts logins.
const RecentLoginWindow = 7 * 24 * time.Hour

type Stats struct {
	TotalUsers   int
	AdminUsers   int
	RegularUsers int
	RecentLogins int
}

type Service struct {
	store  *identity.Store
	logger *zap.Logger
}

func NewService(store *identity.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) authorize(caller *models.Identity, action string) error {
	if caller == nil || !caller.IsAdmin() {
		var id string
		if caller != nil {
			id = caller.ID
		}
		s.logger.Warn("Admin action refused",
			zap.String("action", action),
			zap.String("identity_id", id))
		return ErrForbidden
	}
	return nil
}

func (s *Service) List(caller *models.Identity) ([]models.Identity, error) {
	if err := s.authorize(caller, "list"); err != nil {
		return nil, err
	}
	return s.store.List(), nil
}

func (s *Service) Add(ctx context.Context, caller *models.Identity, draft identity.Draft) (models.Identity, error) {
	if err := s.authorize(caller, "add"); err != nil {
		return models.Identity{}, err
	}
	if strings.TrimSpace(draft.Name) == "" || strings.TrimSpace(draft.Email) == "" {
		return models.Identity{}, ErrInvalidInput
	}
	return s.store.Add(ctx, draft)
}

func (s *Service) Update(ctx context.Context, caller *models.Identity, id string, patch identity.Patch) (models.Identity, error) {
	if err := s.authorize(caller, "update"); err != nil {
		return models.Identity{}, err
	}
	if (patch.Name != nil && strings.TrimSpace(*patch.Name) == "") ||
		(patch.Email != nil && strings.TrimSpace(*patch.Email) == "") {
		return models.Identity{}, ErrInvalidInput
	}
	return s.store.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if err := s.authorize(caller, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) Stats(caller *models.Identity, now time.Time) (Stats, error) {
	if err := s.authorize(caller, "stats"); err != nil {
		return Stats{}, err
	}

	var st Stats
	cutoff := now.Add(-RecentLoginWindow)
	for _, id := range s.store.List() {
		st.TotalUsers++
		switch id.Role {
		case models.RoleAdmin:
			st.AdminUsers++
		case models.RoleUser:
			st.RegularUsers++
		}
		if id.LastLogin != nil && id.LastLogin.After(cutoff) {
			st.RecentLogins++
		}
	}
	return st, nil
}
