package identity

import (
	"time"

	"github.com/xaenox/gpt-vault/internal/models"
)

// Account pairs a roster entry with its login secret.
type Account struct {
	Identity models.Identity
	Secret   string
}

// DefaultAccounts is the roster written on first start.
func DefaultAccounts() []Account {
	return []Account{
		{
			Identity: models.Identity{
				ID:        "1",
				Name:      "Admin Master",
				Email:     "admin@gpt.com",
				Role:      models.RoleAdmin,
				CreatedAt: date(2024, 1, 1, 0, 0),
				LastLogin: ptr(date(2024, 1, 20, 10, 30)),
			},
			Secret: "admin123",
		},
		{
			Identity: models.Identity{
				ID:    "2",
				Name:  "João Silva",
				Email: "joao@email.com",
				Role:  models.RoleUser,
				Permissions: models.Permissions{
					UploadLimit:   10,
					DownloadLimit: 50,
				},
				CreatedAt: date(2024, 1, 2, 0, 0),
				LastLogin: ptr(date(2024, 1, 20, 9, 15)),
			},
			Secret: "user123",
		},
		{
			Identity: models.Identity{
				ID:    "3",
				Name:  "Maria Santos",
				Email: "maria@email.com",
				Role:  models.RoleUser,
				Permissions: models.Permissions{
					UploadLimit:   5,
					DownloadLimit: 25,
				},
				CreatedAt: date(2024, 1, 3, 0, 0),
				LastLogin: ptr(date(2024, 1, 19, 14, 20)),
			},
			Secret: "user123",
		},
	}
}

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
