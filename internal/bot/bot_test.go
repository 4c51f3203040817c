package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xaenox/gpt-vault/internal/chat"
	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/identity"
	"github.com/xaenox/gpt-vault/internal/shell"
	"github.com/xaenox/gpt-vault/internal/storage"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

func (f *fakeAPI) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, storage.Storage) {
	t.Helper()
	st := storage.NewMemoryStorage()
	ids, err := identity.NewStore(context.Background(), st, zap.NewNop(), identity.Options{
		Delay:    clock.Instant,
		HashCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b := NewWithAPI(api, shell.Deps{
		Identities: ids,
		Storage:    st,
		Delay:      clock.Instant,
		Logger:     zap.NewNop(),
	}, zap.NewNop())
	t.Cleanup(b.Close)
	return b, api, st
}

var nextMessageID = 100

func command(chatID int64, text string) *tgbotapi.Message {
	nextMessageID++
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: nextMessageID,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func text(chatID int64, s string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: s}
}

func TestLogin_DeletesSecretAndGreets(t *testing.T) {
	b, api, st := newTestBot(t)
	ctx := context.Background()

	msg := command(7, "/login joao@email.com user123")
	b.HandleMessage(ctx, msg)

	assert.Contains(t, api.last(), shell.MsgLoginSuccess)
	assert.Contains(t, api.last(), "João Silva")

	require.NotEmpty(t, api.requests)
	del, ok := api.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, msg.MessageID, del.MessageID)

	data, err := st.Get(ctx, SessionKey(7))
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestLogin_Failures(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.HandleMessage(ctx, command(7, "/login"))
	assert.Equal(t, "⚠️ "+shell.MsgFillAllFields, api.last())

	b.HandleMessage(ctx, command(7, "/login joao@email.com errada"))
	assert.Equal(t, "⚠️ Email ou senha incorretos", api.last())
}

func TestChat_RequiresLogin(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.HandleMessage(context.Background(), text(7, "oi"))
	assert.Equal(t, "⚠️ Faça login para continuar", api.last())
}

func TestChat_RepliesAndShowsTyping(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))
	api.reset()

	b.HandleMessage(ctx, text(7, "Quero um relatório"))
	assert.Contains(t, api.last(), "relatório")

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.requests)
	action, ok := api.requests[0].(tgbotapi.ChatActionConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ChatTyping, action.Action)
}

func TestChat_DocumentsAndUnsupportedWarning(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))
	api.reset()

	b.HandleMessage(ctx, &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 7},
		Caption:  "enviar",
		Document: &tgbotapi.Document{FileID: "f1", FileName: "dados.csv", MimeType: "text/csv", FileSize: 10},
	})
	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Recebi 1 arquivo(s): text/csv")

	msgs := b.client(ctx, 7).Messages()
	require.Len(t, msgs, 3)
	require.Len(t, msgs[1].Attachments, 1)
	assert.Equal(t, "dados.csv", msgs[1].Attachments[0].Name)
	assert.Equal(t, "https://files.example/f1", msgs[1].Attachments[0].URL)

	api.reset()
	b.HandleMessage(ctx, &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 7},
		Photo: []tgbotapi.PhotoSize{{FileID: "p", FileUniqueID: "small"}, {FileID: "p2", FileUniqueID: "big"}},
	})
	texts = api.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, "⚠️ "+shell.UnsupportedWarning(), texts[0])
}

func TestChatsAreIndependentClients(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.HandleMessage(ctx, command(1, "/login admin@gpt.com admin123"))
	b.HandleMessage(ctx, command(2, "/login maria@email.com user123"))

	b.HandleMessage(ctx, command(2, "/stats"))
	assert.Equal(t, "⚠️ Acesso restrito a administradores", api.last())

	b.HandleMessage(ctx, command(1, "/stats"))
	assert.Contains(t, api.last(), "Total de usuários: 3")

	b.HandleMessage(ctx, command(1, "/deluser 3"))
	assert.Equal(t, shell.MsgUserDeleted, api.last())

	b.HandleMessage(ctx, command(2, "/whoami"))
	assert.Equal(t, "⚠️ Faça login para continuar", api.last())
}

func TestAdminCommands(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(1, "/login admin@gpt.com admin123"))

	b.HandleMessage(ctx, command(1, "/adduser Ana; ana@email.com; user; 2; 20; pw"))
	assert.Equal(t, shell.MsgUserAdded, api.last())

	b.HandleMessage(ctx, command(1, "/adduser Clone; ana@email.com"))
	assert.Equal(t, "⚠️ Email já existe no sistema", api.last())

	b.HandleMessage(ctx, command(1, "/adduser"))
	assert.True(t, strings.HasPrefix(api.last(), "⚠️ Nome e email são obrigatórios"))

	b.HandleMessage(ctx, command(1, "/setuser 2; upload=3"))
	assert.Equal(t, shell.MsgUserUpdated, api.last())

	b.HandleMessage(ctx, command(1, "/users"))
	assert.Contains(t, api.last(), "ana@email.com")
	assert.Contains(t, api.last(), "upload 3")

	b.HandleMessage(ctx, command(9, "/login ana@email.com pw"))
	assert.Contains(t, api.last(), "Ana")
}

func TestConversationCommands(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))

	b.HandleMessage(ctx, text(7, "csv por favor"))
	b.HandleMessage(ctx, command(7, "/new"))
	assert.Equal(t, shell.MsgNewChat, api.last())

	b.HandleMessage(ctx, command(7, "/history"))
	assert.Contains(t, api.last(), "csv por favor")

	b.HandleMessage(ctx, command(7, "/select 2"))
	assert.Contains(t, api.last(), "Conversa: csv por favor")

	b.HandleMessage(ctx, command(7, "/select 9"))
	assert.True(t, strings.HasPrefix(api.last(), "⚠️"))

	b.HandleMessage(ctx, command(7, "/clear"))
	assert.Equal(t, shell.MsgChatCleared, api.last())
}

func TestCatalogCommands(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))

	b.HandleMessage(ctx, command(7, "/commands"))
	assert.NotContains(t, api.last(), "Administração")

	api.reset()
	b.HandleMessage(ctx, command(7, "/run 2"))
	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "› Preciso processar um arquivo CSV e gerar insights", texts[0])
	assert.Contains(t, texts[1], "arquivos CSV")
}

func TestRestoresSessionForKnownChat(t *testing.T) {
	b, _, st := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))

	ids, err := identity.NewStore(ctx, st, zap.NewNop(), identity.Options{Delay: clock.Instant, HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	api := &fakeAPI{}
	restarted := NewWithAPI(api, shell.Deps{Identities: ids, Storage: st, Delay: clock.Instant, Logger: zap.NewNop()}, zap.NewNop())
	defer restarted.Close()

	restarted.HandleMessage(ctx, command(7, "/whoami"))
	assert.Contains(t, api.last(), "joao@email.com")
}

// slowStorage blocks reads of one key until release is closed.
type slowStorage struct {
	storage.Storage
	key     string
	entered chan struct{}
	release chan struct{}
}

func (s *slowStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.key {
		close(s.entered)
		<-s.release
	}
	return s.Storage.Get(ctx, key)
}

func TestSlowRestoreDoesNotBlockOtherChats(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()
	ids, err := identity.NewStore(ctx, st, zap.NewNop(), identity.Options{Delay: clock.Instant, HashCost: bcrypt.MinCost})
	require.NoError(t, err)

	slow := &slowStorage{Storage: st, key: SessionKey(1), entered: make(chan struct{}), release: make(chan struct{})}
	api := &fakeAPI{}
	b := NewWithAPI(api, shell.Deps{Identities: ids, Storage: slow, Delay: clock.Instant, Logger: zap.NewNop()}, zap.NewNop())
	defer b.Close()

	done := make(chan struct{})
	go func() {
		b.HandleMessage(ctx, command(1, "/whoami"))
		close(done)
	}()
	<-slow.entered

	b.HandleMessage(ctx, command(2, "/login joao@email.com user123"))
	assert.Contains(t, api.last(), "João Silva")

	close(slow.release)
	<-done
	assert.Equal(t, "⚠️ Faça login para continuar", api.last())
}

func TestBusyWhileTyping(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()
	b.HandleMessage(ctx, command(7, "/login joao@email.com user123"))

	release := make(chan struct{})
	b.deps.Delay = func(ctx context.Context, _ time.Duration) error {
		<-release
		return nil
	}
	// clients are created lazily, so a fresh chat picks up the blocking delay
	b.HandleMessage(ctx, command(8, "/login maria@email.com user123"))

	done := make(chan struct{})
	go func() {
		b.HandleMessage(ctx, text(8, "primeira"))
		close(done)
	}()
	require.Eventually(t, func() bool { return b.client(ctx, 8).IsTyping() }, time.Second, time.Millisecond)

	b.HandleMessage(ctx, text(8, "segunda"))
	assert.Contains(t, api.texts(), "⚠️ Aguarde o assistente terminar de responder")

	close(release)
	<-done
	assert.Len(t, b.client(ctx, 8).Messages(), 3)
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- b.Start(ctx) }()

	api.updates <- tgbotapi.Update{Message: command(7, "/start")}
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}
	assert.Contains(t, api.last(), "Bem-vindo")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\.c\!`, escapeMarkdown("a_b.c!"))
	assert.Equal(t, chat.DefaultTitle, escapeMarkdown(chat.DefaultTitle))
}
