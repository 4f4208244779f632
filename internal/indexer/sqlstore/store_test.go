package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLiteStore(t *testing.T) *Store {
	t.Helper()
	client, err := database.OpenSQLite(context.Background(), config.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "snapshots.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store, err := New(context.Background(), client)
	require.NoError(t, err)
	return store
}

func snapshotFor(buildID string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		BuildID:   buildID,
		CreatedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Terms: []index.TermEntry{
			{Term: "heist", Postings: index.PostingList{{DocID: 4, Frequency: 2}, {DocID: 9, Frequency: 1}}},
		},
		DocLengths: map[int]int{4: 6, 9: 3},
		Documents: []catalog.Document{
			{ID: 9, Title: "Heat", Description: "A heist"},
			{ID: 4, Title: "Inside Man", Description: "Heist heist in a bank"},
		},
	}
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	store := openSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, snapshotFor("first")))
	require.NoError(t, store.Save(ctx, snapshotFor("second")))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	want := snapshotFor("second")
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.Equal(t, want.Terms, got.Terms)
	assert.Equal(t, want.DocLengths, got.DocLengths)
	assert.Equal(t, want.Documents, got.Documents)
}

func TestStore_SQLiteMissingSnapshot(t *testing.T) {
	store := openSQLiteStore(t)
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotNotFound))
}

func TestStore_SQLiteLoadIndexOnly(t *testing.T) {
	store := openSQLiteStore(t)
	require.NoError(t, store.Save(context.Background(), snapshotFor("only")))

	idx, err := store.LoadIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", idx.BuildID)
	assert.Len(t, idx.Terms, 1)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), &database.Client{Driver: "mysql"})
	assert.Error(t, err)
}
