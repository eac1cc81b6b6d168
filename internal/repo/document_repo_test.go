package repo_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mdocs/internal/config"
	"github.com/xxxsen/mdocs/internal/db"
	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/pkg/dbutil"
	"github.com/xxxsen/mdocs/internal/repo"
)

type documentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, docID string) (*model.Document, error)
	GetByShareLink(ctx context.Context, linkID string) (*model.Document, error)
	List(ctx context.Context, filter repo.DocumentFilter) ([]model.Document, error)
	CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error
	Delete(ctx context.Context, userID, docID string, version int64) error
}

func openSQLiteStore(t *testing.T) documentStore {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "mdocs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.ApplyMigrations(conn))
	return repo.NewDocumentRepo(conn, dbutil.DriverSQLite, 5*time.Second)
}

func openPostgresStore(t *testing.T) documentStore {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Driver:   dbutil.DriverPostgres,
		Host:     host,
		Port:     5432,
		User:     "mdocs",
		Password: "mdocs_pass",
		DBName:   "mdocs_test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	_, err = conn.Exec("DELETE FROM documents")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return repo.NewDocumentRepo(conn, dbutil.DriverPostgres, 5*time.Second)
}

func openMongoStore(t *testing.T) documentStore {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping mongo test")
	}
	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, uri, 5*time.Second)
	require.NoError(t, err)
	col := client.Database("mdocs_test").Collection(fmt.Sprintf("documents_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = col.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	store, err := repo.NewMongoDocumentRepo(ctx, col, 5*time.Second)
	require.NoError(t, err)
	return store
}

func backends() map[string]func(t *testing.T) documentStore {
	return map[string]func(t *testing.T) documentStore{
		"memory":   func(t *testing.T) documentStore { return repo.NewMemoryDocumentRepo() },
		"sqlite":   openSQLiteStore,
		"postgres": openPostgresStore,
		"mongo":    openMongoStore,
	}
}

func newDoc(id, userID string, mtime int64) *model.Document {
	return &model.Document{
		ID:      id,
		UserID:  userID,
		Title:   "title " + id,
		Content: "content " + id,
		Version: 1,
		Ctime:   mtime,
		Mtime:   mtime,
	}
}

func ids(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}

func TestDocumentRepoCRUDAndIsolation(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()

			doc := newDoc("doc-1", "user-1", 100)
			require.NoError(t, store.Create(ctx, doc))
			require.ErrorIs(t, store.Create(ctx, doc), appErr.ErrConflict)

			fetched, err := store.GetByID(ctx, "doc-1")
			require.NoError(t, err)
			require.Equal(t, *doc, *fetched)

			_, err = store.GetByID(ctx, "missing")
			require.ErrorIs(t, err, appErr.ErrNotFound)

			next := fetched.Clone()
			next.Title = "updated"
			next.Version = 2
			next.Mtime = 200
			require.NoError(t, store.CompareAndSwap(ctx, next, 1))

			stale := fetched.Clone()
			stale.Title = "stale"
			stale.Version = 2
			require.ErrorIs(t, store.CompareAndSwap(ctx, stale, 1), appErr.ErrConflict)

			foreign := next.Clone()
			foreign.UserID = "user-2"
			foreign.Version = 3
			require.ErrorIs(t, store.CompareAndSwap(ctx, foreign, 2), appErr.ErrNotFound)

			fetched, err = store.GetByID(ctx, "doc-1")
			require.NoError(t, err)
			require.Equal(t, "updated", fetched.Title)
			require.Equal(t, int64(2), fetched.Version)
			require.Equal(t, int64(100), fetched.Ctime)

			require.ErrorIs(t, store.Delete(ctx, "user-2", "doc-1", 0), appErr.ErrNotFound)
			require.ErrorIs(t, store.Delete(ctx, "user-1", "doc-1", 1), appErr.ErrConflict)
			require.NoError(t, store.Delete(ctx, "user-1", "doc-1", 2))
			require.ErrorIs(t, store.Delete(ctx, "user-1", "doc-1", 0), appErr.ErrNotFound)

			_, err = store.GetByID(ctx, "doc-1")
			require.ErrorIs(t, err, appErr.ErrNotFound)
		})
	}
}

func TestDocumentRepoShareLink(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()

			_, err := store.GetByShareLink(ctx, "")
			require.ErrorIs(t, err, appErr.ErrNotFound)

			a := newDoc("doc-a", "user-1", 100)
			b := newDoc("doc-b", "user-1", 100)
			require.NoError(t, store.Create(ctx, a))
			require.NoError(t, store.Create(ctx, b))

			a.ShareLinkID = "link-1"
			a.IsPublic = true
			a.Version = 2
			require.NoError(t, store.CompareAndSwap(ctx, a, 1))

			found, err := store.GetByShareLink(ctx, "link-1")
			require.NoError(t, err)
			require.Equal(t, "doc-a", found.ID)
			require.True(t, found.IsPublic)

			b.ShareLinkID = "link-1"
			b.Version = 2
			require.ErrorIs(t, store.CompareAndSwap(ctx, b, 1), appErr.ErrConflict)

			_, err = store.GetByShareLink(ctx, "link-2")
			require.ErrorIs(t, err, appErr.ErrNotFound)

			require.NoError(t, store.Delete(ctx, "user-1", "doc-a", 0))
			_, err = store.GetByShareLink(ctx, "link-1")
			require.ErrorIs(t, err, appErr.ErrNotFound)
		})
	}
}

func TestDocumentRepoListFilters(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()

			active := newDoc("active", "user-1", 300)
			active.LastAccessedAt = 50
			starred := newDoc("starred", "user-1", 200)
			starred.Starred = true
			starred.LastAccessedAt = 90
			oldTrash := newDoc("old-trash", "user-1", 100)
			oldTrash.DeletedAt = 10
			newTrash := newDoc("new-trash", "user-1", 100)
			newTrash.DeletedAt = 20
			other := newDoc("other", "user-2", 400)
			for _, doc := range []*model.Document{active, starred, oldTrash, newTrash, other} {
				require.NoError(t, store.Create(ctx, doc))
			}

			docs, err := store.List(ctx, repo.DocumentFilter{UserID: "user-1", State: repo.StateActive})
			require.NoError(t, err)
			require.Equal(t, []string{"active", "starred"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", State: repo.StateTrashed, Order: repo.OrderDeletedAtDesc})
			require.NoError(t, err)
			require.Equal(t, []string{"new-trash", "old-trash"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{State: repo.StateTrashed, DeletedBefore: 20})
			require.NoError(t, err)
			require.Equal(t, []string{"old-trash"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", State: repo.StateActive, StarredOnly: true})
			require.NoError(t, err)
			require.Equal(t, []string{"starred"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", State: repo.StateActive, AccessedOnly: true, Order: repo.OrderLastAccessedDesc})
			require.NoError(t, err)
			require.Equal(t, []string{"starred", "active"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", IDs: []string{"active", "other", "old-trash"}})
			require.NoError(t, err)
			require.ElementsMatch(t, []string{"active", "old-trash"}, ids(docs))

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", IDs: []string{}})
			require.NoError(t, err)
			require.Empty(t, docs)

			docs, err = store.List(ctx, repo.DocumentFilter{UserID: "user-1", Limit: 2, Offset: 1})
			require.NoError(t, err)
			require.Len(t, docs, 2)
			require.Equal(t, "starred", docs[0].ID)
		})
	}
}
