package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/shell"
)

// typingRefresh keeps the typing indicator alive; Telegram drops it after
// about five seconds.
const typingRefresh = 4 * time.Second

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot serves every Telegram chat as its own client.
type Bot struct {
	api    API
	deps   shell.Deps
	logger *zap.Logger

	mu      sync.Mutex
	clients map[int64]*chatClient
}

// chatClient restores its session once, outside Bot.mu, so a slow backend
// only stalls the chat being restored.
type chatClient struct {
	restore sync.Once
	client  *shell.Client
}

func New(token string, deps shell.Deps, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))
	return NewWithAPI(api, deps, logger), nil
}

func NewWithAPI(api API, deps shell.Deps, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		deps:    deps,
		logger:  logger,
		clients: make(map[int64]*chatClient),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(m *tgbotapi.Message) {
				defer wg.Done()
				b.HandleMessage(ctx, m)
			}(update.Message)
		}
	}
}

// Close detaches every chat client from the identity store.
func (b *Bot) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		c.client.Close()
		delete(b.clients, id)
	}
}

func SessionKey(chatID int64) string {
	return "gpt-user:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) client(ctx context.Context, chatID int64) *shell.Client {
	b.mu.Lock()
	c, ok := b.clients[chatID]
	if !ok {
		c = &chatClient{client: shell.NewClient(b.deps, SessionKey(chatID))}
		b.clients[chatID] = c
	}
	b.mu.Unlock()

	c.restore.Do(func() {
		if _, err := c.client.Restore(ctx); err != nil {
			b.logger.Error("Failed to restore session",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	})
	return c.client
}

func (b *Bot) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	c := b.client(ctx, message.Chat.ID)

	if message.IsCommand() {
		b.handleCommand(ctx, c, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	b.submit(ctx, c, message.Chat.ID, content, b.attachments(message))
}

func (b *Bot) handleCommand(ctx context.Context, c *shell.Client, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		b.handleStart(c, chatID)
	case "help":
		b.handleHelp(c, chatID)
	case "login":
		b.handleLogin(ctx, c, message, args)
	case "logout":
		if err := c.Logout(ctx); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, shell.MsgLoggedOut)
	case "whoami":
		b.handleWhoAmI(c, chatID)
	case "new":
		if _, err := c.NewConversation(ctx); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, shell.MsgNewChat)
	case "clear":
		if err := c.Clear(ctx); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, shell.MsgChatCleared)
	case "history":
		b.handleHistory(c, chatID)
	case "select":
		b.handleSelect(c, chatID, args)
	case "commands":
		b.handleCommands(c, chatID)
	case "run":
		b.handleRun(ctx, c, chatID, args)
	case "users":
		users, err := c.Users()
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, shell.FormatUsers(users))
	case "adduser":
		b.handleAddUser(ctx, c, chatID, args)
	case "setuser":
		b.handleSetUser(ctx, c, chatID, args)
	case "deluser":
		b.handleDelUser(ctx, c, chatID, args)
	case "stats":
		st, err := c.Stats()
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, shell.FormatStats(st))
	default:
		b.sendMessage(chatID, "Comando desconhecido. Use /help para ver os comandos disponíveis.")
	}
}

func (b *Bot) handleStart(c *shell.Client, chatID int64) {
	if current := c.Current(); current != nil {
		b.sendMessage(chatID, fmt.Sprintf("Olá, %s! Envie uma mensagem ou um arquivo para conversar com o assistente.", current.Name))
		return
	}

	welcome := `Bem-vindo ao GPT Personalizado! 🤖
Seu assistente inteligente para análise de arquivos e relatórios.

Entre com /login email senha para começar.
Use /help para ver todos os comandos.`
	b.sendMessage(chatID, welcome)
}

func (b *Bot) handleHelp(c *shell.Client, chatID int64) {
	help := `Comandos disponíveis:
/login email senha - Entrar
/logout - Sair
/whoami - Seu perfil e limites
/new - Nova conversa
/clear - Limpar a conversa atual
/history - Listar conversas
/select N - Abrir a conversa N
/commands - Comandos de demonstração
/run N - Executar o comando de demonstração N

Envie texto ou documentos (PDF, CSV, DOCX, TXT) para conversar com o assistente.`

	if current := c.Current(); current != nil && current.IsAdmin() {
		help += `

Administração:
/users - Listar usuários
/adduser ` + shell.AddUserUsage + `
/setuser ` + shell.SetUserUsage + `
/deluser id - Excluir usuário
/stats - Estatísticas`
	}
	b.sendMessage(chatID, help)
}

func (b *Bot) handleLogin(ctx context.Context, c *shell.Client, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	// the command text carries the secret
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		b.logger.Warn("Failed to delete login message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	email, secret, _ := strings.Cut(args, " ")
	id, err := c.Login(ctx, email, strings.TrimSpace(secret))
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("%s Bem-vindo, %s.", shell.MsgLoginSuccess, id.Name))
}

func (b *Bot) handleWhoAmI(c *shell.Client, chatID int64) {
	current := c.Current()
	if current == nil {
		b.replyError(chatID, shell.ErrNotAuthenticated)
		return
	}
	b.sendMessage(chatID, shell.FormatIdentity(*current))
}

func (b *Bot) handleHistory(c *shell.Client, chatID int64) {
	if c.Current() == nil {
		b.replyError(chatID, shell.ErrNotAuthenticated)
		return
	}

	var activeID string
	if active, ok := c.ActiveConversation(); ok {
		activeID = active.ID
	}

	response := "*Suas conversas:*\n" + escapeMarkdown(shell.FormatConversations(c.Conversations(), activeID))
	msg := tgbotapi.NewMessage(chatID, response)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send history message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) handleSelect(c *shell.Client, chatID int64, args string) {
	convs := c.Conversations()
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > len(convs) {
		b.sendErrorMessage(chatID, "Informe o número de uma conversa listada em /history.")
		return
	}
	if err := c.SelectConversation(convs[n-1].ID); err != nil {
		b.replyError(chatID, err)
		return
	}

	var lines []string
	for _, m := range c.Messages() {
		lines = append(lines, shell.FormatMessage(m))
	}
	b.sendMessage(chatID, fmt.Sprintf("Conversa: %s\n\n%s", convs[n-1].Title, strings.Join(lines, "\n\n")))
}

func (b *Bot) handleCommands(c *shell.Client, chatID int64) {
	categories := c.Catalog()
	if categories == nil {
		b.replyError(chatID, shell.ErrNotAuthenticated)
		return
	}
	b.sendMessage(chatID, shell.FormatCatalog(categories)+"\n\nUse /run N para executar um comando.")
}

func (b *Bot) handleRun(ctx context.Context, c *shell.Client, chatID int64, args string) {
	commands := shell.Flatten(c.Catalog())
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > len(commands) {
		b.sendErrorMessage(chatID, "Informe o número de um comando listado em /commands.")
		return
	}

	cmd := commands[n-1]
	b.sendMessage(chatID, "› "+cmd.Text)
	b.submit(ctx, c, chatID, cmd.Text, nil)
}

func (b *Bot) handleAddUser(ctx context.Context, c *shell.Client, chatID int64, args string) {
	draft, err := shell.ParseDraft(args)
	if err != nil {
		b.replyUsage(chatID, err, "/adduser "+shell.AddUserUsage)
		return
	}
	if _, err := c.AddUser(ctx, draft); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, shell.MsgUserAdded)
}

func (b *Bot) handleSetUser(ctx context.Context, c *shell.Client, chatID int64, args string) {
	id, patch, err := shell.ParsePatch(args)
	if err != nil {
		b.replyUsage(chatID, err, "/setuser "+shell.SetUserUsage)
		return
	}
	if _, err := c.UpdateUser(ctx, id, patch); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, shell.MsgUserUpdated)
}

func (b *Bot) handleDelUser(ctx context.Context, c *shell.Client, chatID int64, args string) {
	if args == "" {
		b.sendErrorMessage(chatID, "Uso: /deluser id")
		return
	}
	if err := c.DeleteUser(ctx, args); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, shell.MsgUserDeleted)
}

func (b *Bot) submit(ctx context.Context, c *shell.Client, chatID int64, content string, attachments []models.Attachment) {
	stop := b.keepTyping(chatID)
	reply, rejected, err := c.Submit(ctx, content, attachments)
	stop()

	if len(rejected) > 0 {
		b.sendErrorMessage(chatID, shell.UnsupportedWarning())
	}
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if reply != nil {
		b.sendMessage(chatID, reply.Content)
	}
}

// keepTyping shows the typing action until the returned func is called.
func (b *Bot) keepTyping(chatID int64) func() {
	b.sendTyping(chatID)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				b.sendTyping(chatID)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) attachments(message *tgbotapi.Message) []models.Attachment {
	var out []models.Attachment

	if doc := message.Document; doc != nil {
		out = append(out, models.Attachment{
			Name:      doc.FileName,
			MimeType:  doc.MimeType,
			SizeBytes: int64(doc.FileSize),
			URL:       b.fileURL(message.Chat.ID, doc.FileID),
		})
	}

	if n := len(message.Photo); n > 0 {
		// sizes are ascending; the last one is the original
		photo := message.Photo[n-1]
		out = append(out, models.Attachment{
			Name:      photo.FileUniqueID + ".jpg",
			MimeType:  "image/jpeg",
			SizeBytes: int64(photo.FileSize),
		})
	}
	return out
}

func (b *Bot) fileURL(chatID int64, fileID string) string {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.logger.Warn("Failed to resolve file URL",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("file_id", fileID))
		return ""
	}
	return url
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	b.logger.Debug("Request failed",
		zap.Error(err),
		zap.Int64("chat_id", chatID))
	b.sendErrorMessage(chatID, shell.Describe(err))
}

func (b *Bot) replyUsage(chatID int64, err error, usage string) {
	b.sendErrorMessage(chatID, shell.Describe(err)+"\nUso: "+usage)
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
