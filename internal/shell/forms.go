package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/gpt-vault/internal/admin"
	"github.com/xaenox/gpt-vault/internal/identity"
	"github.com/xaenox/gpt-vault/internal/models"
)

var ErrBadArguments = errors.New("invalid arguments")

// AddUserUsage and SetUserUsage document the argument forms of the text
// user-management commands.
const (
	AddUserUsage = "nome; email; papel (admin|user); upload; download; senha"
	SetUserUsage = "id; campo=valor; ... (campos: nome, email, papel, upload, download)"
)

// ParseLimit accepts a non-negative count or one of the words meaning
// unlimited.
func ParseLimit(s string) (models.Limit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "-", "ilimitado", "unlimited":
		return models.Unlimited, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", ErrBadArguments, s)
	}
	return models.Limit(n), nil
}

func ParseRole(s string) (models.Role, error) {
	role := models.Role(strings.ToLower(strings.TrimSpace(s)))
	if role == "" {
		return models.RoleUser, nil
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrBadArguments, s)
	}
	return role, nil
}

// ParseDraft reads "name; email; role; upload; download; secret". Only name
// and email are required; limits default to the regular-user defaults.
func ParseDraft(args string) (identity.Draft, error) {
	fields := splitArgs(args)
	if len(fields) < 2 {
		return identity.Draft{}, admin.ErrInvalidInput
	}

	draft := identity.Draft{
		Name:          fields[0],
		Email:         fields[1],
		Role:          models.RoleUser,
		UploadLimit:   models.DefaultUploadLimit,
		DownloadLimit: models.DefaultDownloadLimit,
	}

	var err error
	if len(fields) > 2 {
		if draft.Role, err = ParseRole(fields[2]); err != nil {
			return identity.Draft{}, err
		}
	}
	if len(fields) > 3 && fields[3] != "" {
		if draft.UploadLimit, err = ParseLimit(fields[3]); err != nil {
			return identity.Draft{}, err
		}
	}
	if len(fields) > 4 && fields[4] != "" {
		if draft.DownloadLimit, err = ParseLimit(fields[4]); err != nil {
			return identity.Draft{}, err
		}
	}
	if len(fields) > 5 {
		draft.Secret = fields[5]
	}
	return draft, nil
}

// ParsePatch reads "id; field=value; ...".
func ParsePatch(args string) (string, identity.Patch, error) {
	fields := splitArgs(args)
	if len(fields) < 2 || fields[0] == "" {
		return "", identity.Patch{}, ErrBadArguments
	}

	var patch identity.Patch
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return "", identity.Patch{}, fmt.Errorf("%w: expected field=value, got %q", ErrBadArguments, f)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "nome", "name":
			patch.Name = &value
		case "email":
			patch.Email = &value
		case "papel", "role":
			role, err := ParseRole(value)
			if err != nil {
				return "", identity.Patch{}, err
			}
			patch.Role = &role
		case "upload":
			limit, err := ParseLimit(value)
			if err != nil {
				return "", identity.Patch{}, err
			}
			patch.UploadLimit = &limit
		case "download":
			limit, err := ParseLimit(value)
			if err != nil {
				return "", identity.Patch{}, err
			}
			patch.DownloadLimit = &limit
		default:
			return "", identity.Patch{}, fmt.Errorf("%w: unknown field %q", ErrBadArguments, key)
		}
	}
	return fields[0], patch, nil
}

func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
