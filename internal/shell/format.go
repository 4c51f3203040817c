package shell

import (
	"fmt"
	"strings"

	"github.com/xaenox/gpt-vault/internal/admin"
	"github.com/xaenox/gpt-vault/internal/models"
)

const dateLayout = "02/01/2006 15:04"

func roleLabel(r models.Role) string {
	if r == models.RoleAdmin {
		return "Administrador"
	}
	return "Usuário"
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

// FormatIdentity renders the profile card of id.
func FormatIdentity(id models.Identity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>\n", id.Name, id.Email)
	fmt.Fprintf(&b, "Papel: %s\n", roleLabel(id.Role))
	fmt.Fprintf(&b, "Upload: %s arquivos | Download: %s arquivos\n", id.Permissions.UploadLimit, id.Permissions.DownloadLimit)
	fmt.Fprintf(&b, "Relatórios: %s | Gerenciar usuários: %s", yesNo(id.Permissions.CanAccessReports), yesNo(id.Permissions.CanManageUsers))
	return b.String()
}

func FormatUsers(ids []models.Identity) string {
	if len(ids) == 0 {
		return "Nenhum usuário cadastrado."
	}

	var b strings.Builder
	b.WriteString("Usuários:\n")
	for _, id := range ids {
		last := "nunca"
		if id.LastLogin != nil {
			last = id.LastLogin.Format(dateLayout)
		}
		fmt.Fprintf(&b, "[%s] %s <%s> - %s - upload %s, download %s - último login: %s\n",
			id.ID, id.Name, id.Email, roleLabel(id.Role),
			id.Permissions.UploadLimit, id.Permissions.DownloadLimit, last)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatStats(st admin.Stats) string {
	return fmt.Sprintf("Total de usuários: %d\nAdministradores: %d\nUsuários: %d\nLogins nos últimos 7 dias: %d",
		st.TotalUsers, st.AdminUsers, st.RegularUsers, st.RecentLogins)
}

// FormatConversations numbers conversations from 1 and marks the active one.
func FormatConversations(convs []models.Conversation, activeID string) string {
	if len(convs) == 0 {
		return "Nenhuma conversa."
	}

	var b strings.Builder
	for i, c := range convs {
		marker := " "
		if c.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %d. %s (%d mensagens) - %s\n", marker, i+1, c.Title, len(c.Messages), c.CreatedAt.Format(dateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatCatalog lists categories with commands numbered as in Flatten.
func FormatCatalog(categories []Category) string {
	var b strings.Builder
	n := 1
	for _, cat := range categories {
		fmt.Fprintf(&b, "%s\n", cat.Name)
		for _, cmd := range cat.Commands {
			fmt.Fprintf(&b, "  %d. %s - %s\n", n, cmd.Label, cmd.Description)
			n++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatMessage(m models.Message) string {
	who := "Você"
	if m.Role == models.MessageRoleAssistant {
		who = "Assistente"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", m.Timestamp.Format("15:04"), who, m.Content)
	for _, a := range m.Attachments {
		fmt.Fprintf(&b, "\n  📎 %s (%s)", a.Name, formatSize(a.SizeBytes))
	}
	return b.String()
}

func formatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}
