package service

import (
	"context"

	"github.com/xxxsen/mdocs/internal/model"
	"github.com/xxxsen/mdocs/internal/repo"
)

// DocumentRepository is the storage contract the lifecycle engine relies on.
// Writes are scoped by owner; CompareAndSwap and a positive Delete version
// fail with ErrConflict when the stored version moved on.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, docID string) (*model.Document, error)
	GetByShareLink(ctx context.Context, linkID string) (*model.Document, error)
	List(ctx context.Context, filter repo.DocumentFilter) ([]model.Document, error)
	CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error
	Delete(ctx context.Context, userID, docID string, version int64) error
}

var (
	_ DocumentRepository = (*repo.DocumentRepo)(nil)
	_ DocumentRepository = (*repo.MongoDocumentRepo)(nil)
	_ DocumentRepository = (*repo.MemoryDocumentRepo)(nil)
)
