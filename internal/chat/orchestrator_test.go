package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/gpt-vault/internal/clock"
	"github.com/xaenox/gpt-vault/internal/models"
	"github.com/xaenox/gpt-vault/internal/responder"
)

var (
	adminCaller = models.Identity{ID: "1", Role: models.RoleAdmin, Permissions: models.Permissions{}.Normalize(models.RoleAdmin)}
	userCaller  = models.Identity{ID: "2", Role: models.RoleUser, Permissions: models.Permissions{UploadLimit: 2, DownloadLimit: 50}}
)

func files(n int) []models.Attachment {
	out := make([]models.Attachment, n)
	for i := range out {
		out[i] = models.Attachment{Name: fmt.Sprintf("f%d.pdf", i), MimeType: "application/pdf", SizeBytes: 1024}
	}
	return out
}

func newOrchestrator(t *testing.T, delay clock.Delay) (*Orchestrator, *Store) {
	t.Helper()
	s := newLoadedStore(t, nil, "2")
	if delay == nil {
		delay = clock.Instant
	}
	return NewOrchestrator(s, responder.New(), delay, 2*time.Second, zap.NewNop()), s
}

func TestSubmit_BlankIsNoop(t *testing.T) {
	o, s := newOrchestrator(t, nil)

	reply, err := o.Submit(context.Background(), userCaller, "   \n", nil)
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Len(t, s.ActiveMessages(), 1)
}

func TestSubmit_AppendsUserThenAssistant(t *testing.T) {
	var waited time.Duration
	o, s := newOrchestrator(t, func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	})

	reply, err := o.Submit(context.Background(), userCaller, "Preciso analisar um CSV", nil)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, 2*time.Second, waited)
	assert.False(t, o.IsTyping())

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Preciso analisar um CSV", msgs[1].Content)
	assert.Equal(t, models.MessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, reply.Content, msgs[2].Content)
	assert.Contains(t, reply.Content, "arquivos CSV")
}

func TestSubmit_UserOverUploadLimit(t *testing.T) {
	o, s := newOrchestrator(t, nil)

	_, err := o.Submit(context.Background(), userCaller, "upload", files(3))
	require.ErrorIs(t, err, ErrUploadLimitExceeded)

	var limitErr *UploadLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, models.Limit(2), limitErr.Limit)
	assert.Equal(t, 3, limitErr.Requested)
	assert.Len(t, s.ActiveMessages(), 1)
}

func TestSubmit_UserAtUploadLimit(t *testing.T) {
	o, s := newOrchestrator(t, nil)

	reply, err := o.Submit(context.Background(), userCaller, "upload", files(2))
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Recebi 2 arquivo(s)")
	assert.Len(t, s.ActiveMessages(), 3)
}

func TestSubmit_AdminHasNoUploadLimit(t *testing.T) {
	o, s := newOrchestrator(t, nil)

	_, err := o.Submit(context.Background(), adminCaller, "upload", files(100))
	require.NoError(t, err)
	msgs := s.ActiveMessages()
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Attachments, 100)
}

func TestSubmit_AttachmentsWithoutText(t *testing.T) {
	o, s := newOrchestrator(t, nil)

	reply, err := o.Submit(context.Background(), userCaller, "", files(1))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Len(t, s.ActiveMessages(), 3)
}

func TestSubmit_RejectsWhileTyping(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	o, s := newOrchestrator(t, func(ctx context.Context, d time.Duration) error {
		close(entered)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), userCaller, "primeira", nil)
		done <- err
	}()

	<-entered
	assert.True(t, o.IsTyping())
	_, err := o.Submit(context.Background(), userCaller, "segunda", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	msgs := s.ActiveMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "primeira", msgs[1].Content)
}

func TestSubmit_CancelledWhileTyping(t *testing.T) {
	o, s := newOrchestrator(t, clock.Sleep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Submit(ctx, userCaller, "oi", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, o.IsTyping())
	assert.Len(t, s.ActiveMessages(), 2)
}
