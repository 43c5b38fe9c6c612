package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/config"
	"portfolio-api/internal/models"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, config.DefaultConfigPath, flag.DefValue)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	export, _, err := root.Find([]string{"subscribers", "export"})
	require.NoError(t, err)
	assert.Equal(t, "export", export.Name())
}

func TestExportEmptyMemoryStore(t *testing.T) {
	t.Setenv("PORTFOLIO_API_KEY", "k")
	t.Setenv("PORTFOLIO_STORAGE_BACKEND", "memory")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "subscribers", "export"})

	require.NoError(t, root.ExecuteContext(context.Background()))

	var doc models.ListSubscribersResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Empty(t, doc.Subscribers)
	assert.Equal(t, "memory", doc.StorageType)
}

func TestExportFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("PORTFOLIO_API_KEY", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.toml"), "subscribers", "export"})

	err := root.Execute()
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
