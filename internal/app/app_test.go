package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/gpt-vault/internal/storage"
	"github.com/xaenox/gpt-vault/pkg/config"
)

func TestBootstrap_SQLite(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: storage.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "vault.db")},
		Identity: config.IdentityConfig{HashCost: 4},
	}

	deps, st, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer st.Close()

	assert.Len(t, deps.Identities.List(), 3)
	assert.NotNil(t, deps.Responder)

	data, err := st.Get(context.Background(), "gpt-roster")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestBootstrap_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "etcd"}}
	_, _, err := Bootstrap(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
