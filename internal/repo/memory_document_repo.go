package repo

import (
	"context"
	"sync"

	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
)

// MemoryDocumentRepo keeps documents in process memory. It implements the
// same version-guarded writes as the SQL and Mongo repos, so it is used by
// the service tests and the "memory" driver for local development.
type MemoryDocumentRepo struct {
	mu     sync.RWMutex
	store  map[string]*model.Document
	byLink map[string]string
}

func NewMemoryDocumentRepo() *MemoryDocumentRepo {
	return &MemoryDocumentRepo{
		store:  make(map[string]*model.Document),
		byLink: make(map[string]string),
	}
}

func (m *MemoryDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[doc.ID]; ok {
		return appErr.ErrConflict
	}
	if doc.ShareLinkID != "" {
		if _, ok := m.byLink[doc.ShareLinkID]; ok {
			return appErr.ErrConflict
		}
		m.byLink[doc.ShareLinkID] = doc.ID
	}
	m.store[doc.ID] = doc.Clone()
	return nil
}

func (m *MemoryDocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.store[docID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MemoryDocumentRepo) GetByShareLink(ctx context.Context, linkID string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docID, ok := m.byLink[linkID]
	if !ok || linkID == "" {
		return nil, appErr.ErrNotFound
	}
	doc, ok := m.store[docID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MemoryDocumentRepo) List(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]model.Document, 0)
	for _, doc := range m.store {
		if filter.Match(doc) {
			out = append(out, *doc)
		}
	}
	m.mu.RUnlock()
	filter.sortDocuments(out)
	return filter.page(out), nil
}

func (m *MemoryDocumentRepo) CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.store[doc.ID]
	if !ok || current.UserID != doc.UserID {
		return appErr.ErrNotFound
	}
	if current.Version != version {
		return appErr.ErrConflict
	}
	if doc.ShareLinkID != current.ShareLinkID {
		if owner, taken := m.byLink[doc.ShareLinkID]; taken && owner != doc.ID {
			return appErr.ErrConflict
		}
		delete(m.byLink, current.ShareLinkID)
		if doc.ShareLinkID != "" {
			m.byLink[doc.ShareLinkID] = doc.ID
		}
	}
	next := doc.Clone()
	next.Ctime = current.Ctime
	m.store[doc.ID] = next
	return nil
}

func (m *MemoryDocumentRepo) Delete(ctx context.Context, userID, docID string, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.store[docID]
	if !ok || current.UserID != userID {
		return appErr.ErrNotFound
	}
	if version > 0 && current.Version != version {
		return appErr.ErrConflict
	}
	delete(m.store, docID)
	if current.ShareLinkID != "" {
		delete(m.byLink, current.ShareLinkID)
	}
	return nil
}
