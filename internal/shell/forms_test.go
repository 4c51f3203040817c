package shell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/gpt-vault/internal/admin"
	"github.com/xaenox/gpt-vault/internal/models"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Limit
		wantErr bool
	}{
		{"10", 10, false},
		{" 0 ", 0, false},
		{"ilimitado", models.Unlimited, false},
		{"", models.Unlimited, false},
		{"-3", 0, true},
		{"dez", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLimit(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrBadArguments, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDraft(t *testing.T) {
	d, err := ParseDraft("Ana Lima; ana@email.com; user; 3; 30; segredo")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", d.Name)
	assert.Equal(t, "ana@email.com", d.Email)
	assert.Equal(t, models.RoleUser, d.Role)
	assert.Equal(t, models.Limit(3), d.UploadLimit)
	assert.Equal(t, models.Limit(30), d.DownloadLimit)
	assert.Equal(t, "segredo", d.Secret)

	d, err = ParseDraft("Bia; bia@email.com")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultUploadLimit, d.UploadLimit)
	assert.Equal(t, models.DefaultDownloadLimit, d.DownloadLimit)

	_, err = ParseDraft("so-um-campo")
	assert.ErrorIs(t, err, admin.ErrInvalidInput)
	_, err = ParseDraft("X; x@x; root")
	assert.ErrorIs(t, err, ErrBadArguments)
}

func TestParsePatch(t *testing.T) {
	id, p, err := ParsePatch("2; nome=João S.; papel=admin; upload=ilimitado")
	require.NoError(t, err)
	assert.Equal(t, "2", id)
	require.NotNil(t, p.Name)
	assert.Equal(t, "João S.", *p.Name)
	require.NotNil(t, p.Role)
	assert.Equal(t, models.RoleAdmin, *p.Role)
	require.NotNil(t, p.UploadLimit)
	assert.Equal(t, models.Unlimited, *p.UploadLimit)
	assert.Nil(t, p.Email)

	_, _, err = ParsePatch("2")
	assert.ErrorIs(t, err, ErrBadArguments)
	_, _, err = ParsePatch("2; cor=azul")
	assert.ErrorIs(t, err, ErrBadArguments)
	_, _, err = ParsePatch("2; nome")
	assert.ErrorIs(t, err, ErrBadArguments)
}

func TestFormatters(t *testing.T) {
	login := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	ids := []models.Identity{{
		ID: "2", Name: "João Silva", Email: "joao@email.com", Role: models.RoleUser,
		Permissions: models.Permissions{UploadLimit: 10, DownloadLimit: 50},
		LastLogin:   &login,
	}}
	out := FormatUsers(ids)
	assert.Contains(t, out, "[2] João Silva <joao@email.com>")
	assert.Contains(t, out, "15/01/2024 10:30")

	assert.Contains(t, FormatStats(admin.Stats{TotalUsers: 3, AdminUsers: 1, RegularUsers: 2, RecentLogins: 1}), "Total de usuários: 3")

	convs := []models.Conversation{{ID: "a", Title: "Nova Conversa"}, {ID: "b", Title: "CSV"}}
	list := FormatConversations(convs, "b")
	assert.Contains(t, list, "  1. Nova Conversa")
	assert.Contains(t, list, "* 2. CSV")

	msg := FormatMessage(models.Message{
		Role:        models.MessageRoleUser,
		Content:     "veja",
		Attachments: []models.Attachment{{Name: "a.pdf", SizeBytes: 2048}},
	})
	assert.Contains(t, msg, "Você: veja")
	assert.Contains(t, msg, "a.pdf (2.0 KB)")

	assert.Contains(t, FormatIdentity(models.Identity{Name: "Admin", Role: models.RoleAdmin, Permissions: models.Permissions{}.Normalize(models.RoleAdmin)}), "Upload: ilimitado")
}
