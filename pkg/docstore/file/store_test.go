package file

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elysia-ai/corrige/pkg/docstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := docstore.EssayKey("job-1")
	text := "O gato correu rapido e o gato pulou."

	require.NoError(t, s.Put(ctx, key, strings.NewReader(text), int64(len(text))))

	rc, size, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, text, string(body))
	assert.Equal(t, int64(len(text)), size)
}

func TestPutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := docstore.EssayKey("job-1")

	require.NoError(t, s.Put(ctx, key, strings.NewReader("primeira"), 8))
	require.NoError(t, s.Put(ctx, key, strings.NewReader("segunda"), 7))

	rc, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "segunda", string(body))
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Get(context.Background(), docstore.EssayKey("absent"))
	require.Error(t, err)
	assert.True(t, docstore.IsNotFound(err))
}

func TestHead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := docstore.EssayKey("job-1")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("texto"), 5))

	meta, err := s.Head(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, meta.Key)
	assert.Equal(t, int64(5), meta.Size)
	assert.False(t, meta.LastModified.IsZero())

	_, err = s.Head(ctx, docstore.EssayKey("absent"))
	assert.True(t, docstore.IsNotFound(err))
}

func TestRejectsTraversalKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"../outside.txt",
		"essays/../../outside.txt",
		"/..",
		"",
	} {
		t.Run(key, func(t *testing.T) {
			err := s.Put(ctx, key, strings.NewReader("x"), 1)
			require.Error(t, err)
			_, _, err = s.Get(ctx, key)
			require.Error(t, err)
		})
	}
}
