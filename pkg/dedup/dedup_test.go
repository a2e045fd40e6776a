package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elysia-ai/corrige/pkg/essay"
	"github.com/elysia-ai/corrige/pkg/jobstore"
)

func openTestRegistry(t *testing.T, retention time.Duration) *Registry {
	t.Helper()
	ctx := context.Background()
	db, err := jobstore.Open(ctx, jobstore.Config{Path: filepath.Join(t.TempDir(), "jobs.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, jobstore.Migrate(ctx, db))
	return New(db, retention)
}

func TestRegisterAndLookup(t *testing.T) {
	r := openTestRegistry(t, time.Hour)
	ctx := context.Background()
	fp := essay.Fingerprint("O gato correu rapido e o gato pulou.")

	winner, created, err := r.Register(ctx, fp, "job-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "job-1", winner)

	jobID, ok, err := r.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-1", jobID)
}

func TestLookupMiss(t *testing.T) {
	r := openTestRegistry(t, time.Hour)
	_, ok, err := r.Lookup(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterRaceLoserGetsWinner(t *testing.T) {
	r := openTestRegistry(t, time.Hour)
	ctx := context.Background()
	fp := essay.Fingerprint("texto repetido")

	_, created, err := r.Register(ctx, fp, "job-1")
	require.NoError(t, err)
	require.True(t, created)

	winner, created, err := r.Register(ctx, fp, "job-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "job-1", winner)
}

func TestWhitespaceVariantsShareFingerprint(t *testing.T) {
	r := openTestRegistry(t, time.Hour)
	ctx := context.Background()

	a := essay.Fingerprint("O gato  correu\nrapido.")
	b := essay.Fingerprint("O gato correu rapido.")
	require.Equal(t, a, b)

	_, created, err := r.Register(ctx, a, "job-1")
	require.NoError(t, err)
	require.True(t, created)

	winner, created, err := r.Register(ctx, b, "job-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "job-1", winner)
}

func TestRetentionExpiry(t *testing.T) {
	r := openTestRegistry(t, time.Hour)
	ctx := context.Background()
	fp := essay.Fingerprint("texto antigo")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	_, created, err := r.Register(ctx, fp, "job-1")
	require.NoError(t, err)
	require.True(t, created)

	// Inside the window the entry still suppresses resubmission.
	r.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, ok, err := r.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.True(t, ok)

	// Past the window the entry is dropped and the fingerprint is free.
	r.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok, err = r.Lookup(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)

	winner, created, err := r.Register(ctx, fp, "job-2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "job-2", winner)
}
