package shell

import (
	"errors"
	"fmt"

	"github.com/xaenox/gpt-vault/internal/admin"
	"github.com/xaenox/gpt-vault/internal/chat"
	"github.com/xaenox/gpt-vault/internal/identity"
)

const (
	MsgLoginSuccess   = "Login realizado com sucesso!"
	MsgFillAllFields  = "Por favor, preencha todos os campos"
	MsgLoggedOut      = "Você saiu da sua conta."
	MsgUserAdded      = "Usuário adicionado com sucesso!"
	MsgUserUpdated    = "Usuário atualizado com sucesso!"
	MsgUserDeleted    = "Usuário excluído com sucesso!"
	MsgChatCleared    = "Conversa limpa."
	MsgNewChat        = "Nova conversa iniciada."
	MsgUnsupportedFmt = "Alguns arquivos não são suportados. Tipos aceitos: %s"
)

// Describe turns an error into the text shown to the user.
func Describe(err error) string {
	var limitErr *chat.UploadLimitError
	switch {
	case errors.As(err, &limitErr):
		return fmt.Sprintf("Limite de upload excedido. Máximo: %s arquivos", limitErr.Limit)
	case errors.Is(err, identity.ErrAuthFailure):
		return "Email ou senha incorretos"
	case errors.Is(err, identity.ErrDuplicateEmail):
		return "Email já existe no sistema"
	case errors.Is(err, identity.ErrNotFound):
		return "Usuário não encontrado"
	case errors.Is(err, admin.ErrInvalidInput):
		return "Nome e email são obrigatórios"
	case errors.Is(err, admin.ErrForbidden):
		return "Acesso restrito a administradores"
	case errors.Is(err, chat.ErrBusy):
		return "Aguarde o assistente terminar de responder"
	case errors.Is(err, chat.ErrIdentityChanged):
		return "A sessão mudou antes da resposta; ela foi salva na conversa de origem"
	case errors.Is(err, chat.ErrConversationMissing):
		return "Conversa não encontrada"
	case errors.Is(err, ErrMissingFields):
		return MsgFillAllFields
	case errors.Is(err, ErrBadArguments):
		return "Argumentos inválidos"
	case errors.Is(err, ErrNotAuthenticated):
		return "Faça login para continuar"
	default:
		return "Algo deu errado. Tente novamente."
	}
}

// UnsupportedWarning is shown when attachments were dropped.
func UnsupportedWarning() string {
	return fmt.Sprintf(MsgUnsupportedFmt, chat.AcceptedTypesHint)
}
