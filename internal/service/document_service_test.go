package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/repo"
)

func TestCreateDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "user-a", DocumentCreateInput{Title: "   ", Content: ""})
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, doc.Title)
	require.Equal(t, "", doc.Content)
	require.Equal(t, "user-a", doc.UserID)
	require.Equal(t, testStart, doc.Ctime)
	require.Equal(t, testStart, doc.Mtime)
	require.Zero(t, doc.DeletedAt)
	require.False(t, doc.Starred)
	require.False(t, doc.IsPublic)
	require.Empty(t, doc.ShareLinkID)
	require.Len(t, doc.ID, 36)

	other := mustCreate(t, svc, "user-a", "Contract", "v1")
	require.NotEqual(t, doc.ID, other.ID)
	require.Equal(t, "Contract", other.Title)
}

func TestEmptyCallerIsUnauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "t", "c")

	_, err := svc.Create(ctx, "", DocumentCreateInput{})
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.SoftDeleteMany(ctx, "", []string{doc.ID})
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.Restore(ctx, "", doc.ID)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.PermanentDelete(ctx, "", doc.ID)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.ListTrashed(ctx, "")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.SweepUser(ctx, "")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.SetShareStatus(ctx, "", doc.ID, true)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.ToggleStar(ctx, "", doc.ID)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	require.ErrorIs(t, svc.TouchAccess(ctx, "", doc.ID), appErr.ErrUnauthorized)
	_, err = svc.ListRecent(ctx, "", 10)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = svc.ListStarred(ctx, "")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestGetUpdateAndList(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	first := mustCreate(t, svc, "user-a", "first", "1")
	clock.Advance(10)
	second := mustCreate(t, svc, "user-a", "second", "2")
	mustCreate(t, svc, "user-b", "foreign", "x")

	got, err := svc.Get(ctx, "user-a", first.ID)
	require.NoError(t, err)
	require.Equal(t, "first", got.Title)

	_, err = svc.Get(ctx, "user-b", first.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	clock.Advance(10)
	updated, err := svc.Update(ctx, "user-a", first.ID, DocumentUpdateInput{Title: "", Content: "new"})
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, updated.Title)
	require.Equal(t, "new", updated.Content)
	require.Equal(t, testStart+20, updated.Mtime)
	require.Equal(t, first.Ctime, updated.Ctime)

	_, err = svc.Update(ctx, "user-b", first.ID, DocumentUpdateInput{Title: "hijack"})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	docs, err := svc.List(ctx, "user-a", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{first.ID, second.ID}, docIDs(docs))

	docs, err = svc.List(ctx, "user-a", 1, 1)
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, docIDs(docs))

	_, err = svc.SoftDeleteMany(ctx, "user-a", []string{first.ID})
	require.NoError(t, err)
	_, err = svc.Get(ctx, "user-a", first.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.Update(ctx, "user-a", first.ID, DocumentUpdateInput{Title: "x"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSoftDeleteMany(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.SoftDeleteMany(ctx, "user-a", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.SoftDeleteMany(ctx, "user-a", []string{"", " "})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	a1 := mustCreate(t, svc, "user-a", "a1", "")
	a2 := mustCreate(t, svc, "user-a", "a2", "")
	a3 := mustCreate(t, svc, "user-a", "a3", "")
	b1 := mustCreate(t, svc, "user-b", "b1", "")

	count, err := svc.SoftDeleteMany(ctx, "user-a", []string{a3.ID})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	clock.Advance(5)
	count, err = svc.SoftDeleteMany(ctx, "user-a", []string{a1.ID, a1.ID, a2.ID, a3.ID, b1.ID, "missing"})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, err := svc.docs.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	require.Equal(t, testStart+5, got.DeletedAt)
	require.Equal(t, testStart+5, got.Mtime)

	got, err = svc.docs.GetByID(ctx, a3.ID)
	require.NoError(t, err)
	require.Equal(t, testStart, got.DeletedAt)

	got, err = svc.docs.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	require.False(t, got.IsTrashed())
}

func TestSoftDeleteManyScanFailure(t *testing.T) {
	docs := &hookRepo{MemoryDocumentRepo: repo.NewMemoryDocumentRepo()}
	svc := NewDocumentService(docs, testRetention, testShareBase)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "t", "")

	docs.listErr = errBackendDown
	_, err := svc.SoftDeleteMany(ctx, "user-a", []string{doc.ID})
	require.ErrorIs(t, err, appErr.ErrUnavailable)
}

func TestSoftDeleteManySkipsFailedWrites(t *testing.T) {
	docs := &hookRepo{MemoryDocumentRepo: repo.NewMemoryDocumentRepo()}
	svc := NewDocumentService(docs, testRetention, testShareBase)
	ctx := context.Background()
	a := mustCreate(t, svc, "user-a", "a", "")
	b := mustCreate(t, svc, "user-a", "b", "")

	docs.casErr = errBackendDown
	count, err := svc.SoftDeleteMany(ctx, "user-a", []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSoftDeleteManyRetriesOnConcurrentChange(t *testing.T) {
	docs := &hookRepo{MemoryDocumentRepo: repo.NewMemoryDocumentRepo()}
	svc := NewDocumentService(docs, testRetention, testShareBase)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "a", "")

	docs.afterList = func() {
		docs.afterList = nil
		_, err := svc.ToggleStar(ctx, "user-a", doc.ID)
		require.NoError(t, err)
	}
	count, err := svc.SoftDeleteMany(ctx, "user-a", []string{doc.ID})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, got.IsTrashed())
	require.True(t, got.Starred)
}

func TestRestoreRoundTrip(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "Contract", "v1")

	ok, err := svc.Restore(ctx, "user-a", doc.ID)
	require.NoError(t, err)
	require.False(t, ok, "active document cannot be restored")

	_, err = svc.SoftDeleteMany(ctx, "user-a", []string{doc.ID})
	require.NoError(t, err)

	clock.Advance(30)
	ok, err = svc.Restore(ctx, "user-a", doc.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := svc.Get(ctx, "user-a", doc.ID)
	require.NoError(t, err)
	require.Equal(t, "Contract", got.Title)
	require.Equal(t, "v1", got.Content)
	require.Zero(t, got.DeletedAt)
	require.Equal(t, testStart+30, got.Mtime)

	ok, err = svc.Restore(ctx, "user-a", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestoreCrossTenant(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "Contract", "v1")
	_, err := svc.SoftDeleteMany(ctx, "user-a", []string{doc.ID})
	require.NoError(t, err)

	ok, err := svc.Restore(ctx, "user-b", doc.ID)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := svc.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, got.IsTrashed())
}

func TestRestoreUnavailable(t *testing.T) {
	docs := &hookRepo{MemoryDocumentRepo: repo.NewMemoryDocumentRepo()}
	svc := NewDocumentService(docs, testRetention, testShareBase)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "a", "")

	docs.getErr = errBackendDown
	ok, err := svc.Restore(ctx, "user-a", doc.ID)
	require.False(t, ok)
	require.ErrorIs(t, err, appErr.ErrUnavailable)
	require.NotErrorIs(t, err, appErr.ErrNotFound)
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	docs := &hookRepo{MemoryDocumentRepo: repo.NewMemoryDocumentRepo()}
	svc := NewDocumentService(docs, testRetention, testShareBase)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "a", "")

	docs.casErr = appErr.ErrConflict
	_, err := svc.ToggleStar(ctx, "user-a", doc.ID)
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestPermanentDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	active := mustCreate(t, svc, "user-a", "active", "")
	trashed := mustCreate(t, svc, "user-a", "trashed", "")
	_, err := svc.SoftDeleteMany(ctx, "user-a", []string{trashed.ID})
	require.NoError(t, err)

	ok, err := svc.PermanentDelete(ctx, "user-b", active.ID)
	require.NoError(t, err)
	require.False(t, ok)

	for _, id := range []string{active.ID, trashed.ID} {
		ok, err = svc.PermanentDelete(ctx, "user-a", id)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = svc.docs.GetByID(ctx, id)
		require.ErrorIs(t, err, appErr.ErrNotFound)
	}

	ok, err = svc.PermanentDelete(ctx, "user-a", active.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.Restore(ctx, "user-a", trashed.ID)
	require.NoError(t, err)
	require.False(t, ok, "purge is terminal")
}

func TestScenarioTrashRestoreAndRecent(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, "user-a", "Contract", "v1")
	_, err := svc.ToggleStar(ctx, "user-a", doc.ID)
	require.NoError(t, err)

	count, err := svc.SoftDeleteMany(ctx, "user-a", []string{doc.ID})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	starred, err := svc.ListStarred(ctx, "user-a")
	require.NoError(t, err)
	require.NotContains(t, docIDs(starred), doc.ID)

	ok, err := svc.Restore(ctx, "user-a", doc.ID)
	require.NoError(t, err)
	require.True(t, ok)

	recent, err := svc.ListRecent(ctx, "user-a", 10)
	require.NoError(t, err)
	require.NotContains(t, docIDs(recent), doc.ID)

	clock.Advance(1)
	require.NoError(t, svc.TouchAccess(ctx, "user-a", doc.ID))
	recent, err = svc.ListRecent(ctx, "user-a", 10)
	require.NoError(t, err)
	require.Equal(t, []string{doc.ID}, docIDs(recent))
}
