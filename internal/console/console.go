// Package console runs a single client in a terminal read-eval-print loop.
//
// Lines starting with "/" are commands (the same verbs as the Telegram bot,
// plus /attach, /detach and /exit); anything else is sent to the assistant
// together with the files queued by /attach. An empty line sends the queued
// files alone.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/shell"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var isTerminal = term.IsTerminal

func init() {
	// the system mime table is not guaranteed to know the accepted formats
	for ext, typ := range map[string]string{
		".csv":  "text/csv",
		".txt":  "text/plain",
		".pdf":  "application/pdf",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	} {
		_ = mime.AddExtensionType(ext, typ)
	}
}

type Console struct {
	client  *shell.Client
	in      *bufio.Reader
	out     io.Writer
	stdinFd int
	logger  *zap.Logger
	pending []models.Attachment
}

func New(client *shell.Client, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	return &Console{
		client:  client,
		in:      bufio.NewReader(in),
		out:     out,
		stdinFd: int(os.Stdin.Fd()),
		logger:  logger,
	}
}

// Run restores the previous session and loops until EOF, /exit or ctx is
// cancelled.
func (c *Console) Run(ctx context.Context) error {
	restored, err := c.client.Restore(ctx)
	if err != nil {
		c.logger.Error("Failed to restore session", zap.Error(err))
	}

	c.println("GPT Personalizado - seu assistente inteligente (digite /help para ver os comandos)")
	if restored != nil {
		c.println(fmt.Sprintf("Sessão restaurada: %s", restored.Name))
		c.printConversation()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(c.out, "gpt %s> ", c.status())

		line, err := c.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			if len(c.pending) > 0 {
				c.submit(ctx, "")
			}
			continue
		}
		if !strings.HasPrefix(line, "/") {
			c.submit(ctx, line)
			continue
		}

		cmd, args, _ := strings.Cut(line[1:], " ")
		if !c.dispatch(ctx, cmd, strings.TrimSpace(args)) {
			c.println("Até logo!")
			return nil
		}
	}
}

func (c *Console) status() string {
	current := c.client.Current()
	if current == nil {
		return "(desconectado)"
	}
	s := current.Name
	if len(c.pending) > 0 {
		s += fmt.Sprintf(" +%d", len(c.pending))
	}
	return "(" + s + ")"
}

// dispatch runs one command and reports whether the loop should continue.
func (c *Console) dispatch(ctx context.Context, cmd, args string) bool {
	switch cmd {
	case "help":
		c.help()
	case "login":
		c.login(ctx, args)
	case "logout":
		c.pending = nil
		if err := c.client.Logout(ctx); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgLoggedOut)
	case "whoami":
		current := c.client.Current()
		if current == nil {
			c.fail(shell.ErrNotAuthenticated)
			return true
		}
		c.println(shell.FormatIdentity(*current))
	case "new":
		if _, err := c.client.NewConversation(ctx); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgNewChat)
	case "clear":
		if err := c.client.Clear(ctx); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgChatCleared)
		c.printConversation()
	case "history":
		var activeID string
		if active, ok := c.client.ActiveConversation(); ok {
			activeID = active.ID
		}
		c.println(shell.FormatConversations(c.client.Conversations(), activeID))
	case "select":
		c.selectConversation(args)
	case "commands":
		categories := c.client.Catalog()
		if categories == nil {
			c.fail(shell.ErrNotAuthenticated)
			return true
		}
		c.println(shell.FormatCatalog(categories))
	case "run":
		commands := shell.Flatten(c.client.Catalog())
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > len(commands) {
			c.println("⚠️ Informe o número de um comando listado em /commands.")
			return true
		}
		c.println("› " + commands[n-1].Text)
		c.submit(ctx, commands[n-1].Text)
	case "attach":
		c.attach(args)
	case "detach":
		c.pending = nil
		c.println("Fila de anexos esvaziada.")
	case "users":
		users, err := c.client.Users()
		if err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.FormatUsers(users))
	case "adduser":
		draft, err := shell.ParseDraft(args)
		if err != nil {
			c.fail(err)
			c.println("Uso: /adduser " + shell.AddUserUsage)
			return true
		}
		if _, err := c.client.AddUser(ctx, draft); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgUserAdded)
	case "setuser":
		id, patch, err := shell.ParsePatch(args)
		if err != nil {
			c.fail(err)
			c.println("Uso: /setuser " + shell.SetUserUsage)
			return true
		}
		if _, err := c.client.UpdateUser(ctx, id, patch); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgUserUpdated)
	case "deluser":
		if err := c.client.DeleteUser(ctx, args); err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.MsgUserDeleted)
	case "stats":
		st, err := c.client.Stats()
		if err != nil {
			c.fail(err)
			return true
		}
		c.println(shell.FormatStats(st))
	case "exit", "quit":
		return false
	default:
		c.println("Comando desconhecido: /" + cmd)
	}
	return true
}

func (c *Console) help() {
	c.println("Comandos: /login email, /logout, /whoami, /new, /clear, /history, /select N, /commands, /run N, /attach caminho, /detach, /exit")
	if current := c.client.Current(); current != nil && current.IsAdmin() {
		c.println("Administração: /users, /adduser " + shell.AddUserUsage + ", /setuser " + shell.SetUserUsage + ", /deluser id, /stats")
	}
}

func (c *Console) login(ctx context.Context, args string) {
	email, secret, _ := strings.Cut(args, " ")
	secret = strings.TrimSpace(secret)
	if email != "" && secret == "" {
		pw, err := c.password()
		if err != nil {
			c.fail(err)
			return
		}
		secret = pw
	}

	id, err := c.client.Login(ctx, email, secret)
	if err != nil {
		c.fail(err)
		return
	}
	c.pending = nil
	c.println(fmt.Sprintf("%s Bem-vindo, %s.", shell.MsgLoginSuccess, id.Name))
	c.printConversation()
}

// password reads the secret without echo on a terminal, or as the next
// input line otherwise.
func (c *Console) password() (string, error) {
	fmt.Fprint(c.out, "Senha: ")
	if isTerminal(c.stdinFd) {
		pw, err := readPassword(c.stdinFd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Console) selectConversation(args string) {
	convs := c.client.Conversations()
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > len(convs) {
		c.println("⚠️ Informe o número de uma conversa listada em /history.")
		return
	}
	if err := c.client.SelectConversation(convs[n-1].ID); err != nil {
		c.fail(err)
		return
	}
	c.printConversation()
}

func (c *Console) attach(path string) {
	if path == "" {
		c.println("Uso: /attach caminho")
		return
	}

	a, err := describeFile(path)
	if err != nil {
		c.logger.Debug("Attach failed", zap.Error(err), zap.String("path", path))
		c.println("⚠️ Não foi possível ler o arquivo: " + path)
		return
	}
	c.pending = append(c.pending, a)
	c.println(fmt.Sprintf("Anexado: %s (%d na fila)", a.Name, len(c.pending)))
}

func describeFile(path string) (models.Attachment, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.Attachment{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.Attachment{}, err
	}
	if info.IsDir() {
		return models.Attachment{}, fmt.Errorf("%s is a directory", abs)
	}

	mimeType, _, _ := strings.Cut(mime.TypeByExtension(filepath.Ext(abs)), ";")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return models.Attachment{
		Name:      info.Name(),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
		URL:       "file://" + filepath.ToSlash(abs),
	}, nil
}

// submit sends text with the queued files. The queue survives a rejected
// submission so the user can drop files and retry.
func (c *Console) submit(ctx context.Context, text string) {
	reply, rejected, err := c.client.Submit(ctx, text, c.pending)
	if len(rejected) > 0 {
		c.println("⚠️ " + shell.UnsupportedWarning())
	}
	if err != nil {
		c.pending = withoutFiles(c.pending, rejected)
		c.fail(err)
		return
	}
	c.pending = nil
	if reply != nil {
		c.println(shell.FormatMessage(*reply))
	}
}

func withoutFiles(files, drop []models.Attachment) []models.Attachment {
	if len(drop) == 0 {
		return files
	}
	var kept []models.Attachment
	for _, f := range files {
		dropped := false
		for _, d := range drop {
			if f.URL == d.URL && f.Name == d.Name {
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, f)
		}
	}
	return kept
}

func (c *Console) printConversation() {
	for _, m := range c.client.Messages() {
		c.println(shell.FormatMessage(m))
	}
}

func (c *Console) fail(err error) {
	c.logger.Debug("Command failed", zap.Error(err))
	c.println("⚠️ " + shell.Describe(err))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
