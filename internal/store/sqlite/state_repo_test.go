package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client_go/internal/domain"
	"client_go/internal/store/sqlite"
)

func TestStateRepo(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlite.Migrate(db))
	require.NoError(t, sqlite.Migrate(db), "migrations must be idempotent")

	repo := sqlite.NewStateRepo(db)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, domain.StateKeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Put(ctx, map[string]string{
		domain.StateKeyAuthToken: "t1",
		domain.StateKeyUserEmail: "me@example.com",
	}))
	require.NoError(t, repo.Put(ctx, map[string]string{domain.StateKeyAuthToken: "t2"}))

	v, ok, err := repo.Get(ctx, domain.StateKeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t2", v)

	require.NoError(t, repo.Delete(ctx, domain.StateKeyAuthToken, domain.StateKeyUserEmail, "missing"))
	_, ok, err = repo.Get(ctx, domain.StateKeyUserEmail)
	require.NoError(t, err)
	assert.False(t, ok)
}
