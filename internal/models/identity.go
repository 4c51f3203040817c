package models

import (
	"encoding/json"
	"strconv"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Limit is a per-identity quota. Unlimited is stored as JSON null.
type Limit int

const (
	Unlimited Limit = -1

	DefaultUploadLimit   Limit = 10
	DefaultDownloadLimit Limit = 50
)

func (l Limit) Bounded() bool {
	return l >= 0
}

func (l Limit) String() string {
	if !l.Bounded() {
		return "ilimitado"
	}
	return strconv.Itoa(int(l))
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if !l.Bounded() {
		return []byte("null"), nil
	}
	return json.Marshal(int(l))
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Limit(n)
	return nil
}

// Permissions are derived from the role; see Normalize.
type Permissions struct {
	UploadLimit      Limit `json:"upload_limit"`
	DownloadLimit    Limit `json:"download_limit"`
	CanAccessReports bool  `json:"can_access_reports"`
	CanManageUsers   bool  `json:"can_manage_users"`
}

// Normalize forces the permission set implied by role. Admins get unbounded
// limits and both capabilities; users keep finite limits and no capabilities.
func (p Permissions) Normalize(role Role) Permissions {
	if role == RoleAdmin {
		return Permissions{
			UploadLimit:      Unlimited,
			DownloadLimit:    Unlimited,
			CanAccessReports: true,
			CanManageUsers:   true,
		}
	}
	if !p.UploadLimit.Bounded() {
		p.UploadLimit = DefaultUploadLimit
	}
	if !p.DownloadLimit.Bounded() {
		p.DownloadLimit = DefaultDownloadLimit
	}
	p.CanAccessReports = false
	p.CanManageUsers = false
	return p
}

// Identity represents an account of the assistant with its role and quotas
type Identity struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
	LastLogin   *time.Time  `json:"last_login,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
