package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/testutil"
)

func TestLocalStateRepo_SaveAndGet(t *testing.T) {
	repo := NewSQLiteLocalStateRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	role := testutil.NewLocalNode(domain.KindRole, "Engineer")
	org := testutil.NewTestNode(domain.KindOrganization, "Acme",
		testutil.WithDisposition(domain.DispositionModified),
		testutil.WithChildren(role))
	org.Reordered = true
	org.Draft = map[string]string{"title": "Half typed"}

	state := &domain.LocalState{
		StoreName:     "organization-nested-item.resumedit.local",
		SchemaVersion: 1,
		RootClientID:  org.ClientID,
		Tree:          org,
	}
	require.NoError(t, repo.Save(ctx, state))

	got, err := repo.Get(ctx, state.StoreName)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SchemaVersion)
	assert.Equal(t, org.ClientID, got.RootClientID)
	require.NotNil(t, got.Tree)
	assert.Equal(t, domain.DispositionModified, got.Tree.Disposition)
	assert.True(t, got.Tree.Reordered)
	assert.Equal(t, "Half typed", got.Tree.Draft["title"])
	require.Len(t, got.Tree.Children, 1)
	assert.Equal(t, role.ClientID, got.Tree.Children[0].ClientID)
	assert.Equal(t, domain.DispositionNew, got.Tree.Children[0].Disposition)
	assert.Empty(t, got.Tree.Children[0].ID)
	assert.Nil(t, got.LastSyncedAt)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestLocalStateRepo_SaveOverwrites(t *testing.T) {
	repo := NewSQLiteLocalStateRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	first := testutil.NewTestNode(domain.KindResume, "One")
	second := testutil.NewTestNode(domain.KindResume, "Two")
	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "s", SchemaVersion: 1, RootClientID: first.ClientID, Tree: first}))
	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "s", SchemaVersion: 2, RootClientID: second.ClientID, Tree: second}))

	got, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 2, got.SchemaVersion)
	assert.Equal(t, "Two", got.Tree.Fields["name"])
}

func TestLocalStateRepo_NilTree(t *testing.T) {
	repo := NewSQLiteLocalStateRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "empty", SchemaVersion: 1}))
	got, err := repo.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Nil(t, got.Tree)
}

func TestLocalStateRepo_DeleteAndNotFound(t *testing.T) {
	repo := NewSQLiteLocalStateRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "s", SchemaVersion: 1}))
	require.NoError(t, repo.Delete(ctx, "s"))
	_, err = repo.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "s"), "deleting twice is fine")
}

func TestLocalStateRepo_MarkSynced(t *testing.T) {
	repo := NewSQLiteLocalStateRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	assert.ErrorIs(t, repo.MarkSynced(ctx, "s", at), ErrNotFound)

	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "s", SchemaVersion: 1}))
	require.NoError(t, repo.MarkSynced(ctx, "s", at))
	require.NoError(t, repo.Save(ctx, &domain.LocalState{StoreName: "s", SchemaVersion: 1}))

	got, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, at.Equal(*got.LastSyncedAt), "save keeps the last sync time")
}
