package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elysia-ai/corrige/internal/config"
)

func TestBuildDocstore(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled when provider empty", func(t *testing.T) {
		cfg := &config.Config{}
		docs, err := buildDocstore(ctx, cfg)
		require.NoError(t, err)
		assert.Nil(t, docs)
	})

	t.Run("file provider", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Storage.Docs.Provider = "file"
		cfg.Storage.Docs.Dir = t.TempDir()
		docs, err := buildDocstore(ctx, cfg)
		require.NoError(t, err)
		require.NotNil(t, docs)
		assert.NoError(t, docs.Close())
	})

	t.Run("s3 provider requires bucket", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Storage.Docs.Provider = "s3"
		_, err := buildDocstore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket")
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Storage.Docs.Provider = "ftp"
		_, err := buildDocstore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown docs provider")
	})
}
