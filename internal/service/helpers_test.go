package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mdocs/internal/model"
	"github.com/xxxsen/mdocs/internal/pkg/timeutil"
	"github.com/xxxsen/mdocs/internal/repo"
)

const (
	testRetention = 7 * 24 * time.Hour
	testWindow    = int64(7 * 24 * 3600)
	testStart     = int64(1700000000)
	testShareBase = "https://docs.example.com"
)

type fakeClock struct {
	now atomic.Int64
}

func newFakeClock(start int64) *fakeClock {
	c := &fakeClock{}
	c.now.Store(start)
	return c
}

func (c *fakeClock) Clock() timeutil.Clock {
	return func() time.Time { return time.Unix(c.now.Load(), 0) }
}

func (c *fakeClock) Set(v int64) {
	c.now.Store(v)
}

func (c *fakeClock) Advance(d int64) {
	c.now.Add(d)
}

func newTestService(t *testing.T) (*DocumentService, *repo.MemoryDocumentRepo, *fakeClock) {
	t.Helper()
	docs := repo.NewMemoryDocumentRepo()
	clock := newFakeClock(testStart)
	return NewDocumentService(docs, testRetention, testShareBase+"/", WithClock(clock.Clock())), docs, clock
}

func mustCreate(t *testing.T, svc *DocumentService, userID, title, content string) *model.Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), userID, DocumentCreateInput{Title: title, Content: content})
	require.NoError(t, err)
	return doc
}

func docIDs(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}

// hookRepo wraps the memory repo so tests can inject failures or interleave
// concurrent changes between a scan and the writes that follow it.
type hookRepo struct {
	*repo.MemoryDocumentRepo
	listErr   error
	getErr    error
	casErr    error
	deleteErr error
	afterList func()
	beforeCAS func(doc *model.Document) error
}

func (h *hookRepo) List(ctx context.Context, filter repo.DocumentFilter) ([]model.Document, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	docs, err := h.MemoryDocumentRepo.List(ctx, filter)
	if err == nil && h.afterList != nil {
		h.afterList()
	}
	return docs, err
}

func (h *hookRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	if h.getErr != nil {
		return nil, h.getErr
	}
	return h.MemoryDocumentRepo.GetByID(ctx, docID)
}

func (h *hookRepo) CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error {
	if h.casErr != nil {
		return h.casErr
	}
	if h.beforeCAS != nil {
		if err := h.beforeCAS(doc); err != nil {
			return err
		}
	}
	return h.MemoryDocumentRepo.CompareAndSwap(ctx, doc, version)
}

func (h *hookRepo) Delete(ctx context.Context, userID, docID string, version int64) error {
	if h.deleteErr != nil {
		return h.deleteErr
	}
	return h.MemoryDocumentRepo.Delete(ctx, userID, docID, version)
}

var errBackendDown = errors.New("connection refused")
