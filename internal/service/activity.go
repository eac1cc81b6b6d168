package service

import (
	"context"

	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/repo"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// ToggleStar flips the star flag and returns the new value. Trashed documents
// can be starred too.
func (s *DocumentService) ToggleStar(ctx context.Context, userID, docID string) (bool, error) {
	doc, err := s.mutate(ctx, userID, docID, nil, func(doc *model.Document, now int64) error {
		doc.Starred = !doc.Starred
		doc.Mtime = now
		return nil
	})
	if err != nil {
		return false, err
	}
	return doc.Starred, nil
}

func (s *DocumentService) TouchAccess(ctx context.Context, userID, docID string) error {
	_, err := s.mutate(ctx, userID, docID, nil, func(doc *model.Document, now int64) error {
		doc.LastAccessedAt = now
		doc.Mtime = now
		return nil
	})
	return err
}

func (s *DocumentService) ListRecent(ctx context.Context, userID string, limit int) ([]model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID:       userID,
		State:        repo.StateActive,
		AccessedOnly: true,
		Order:        repo.OrderLastAccessedDesc,
		Limit:        uint(limit),
	})
	if err != nil {
		return nil, appErr.Unavailable(err)
	}
	return docs, nil
}

func (s *DocumentService) ListStarred(ctx context.Context, userID string) ([]model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID:      userID,
		State:       repo.StateActive,
		StarredOnly: true,
		Order:       repo.OrderMtimeDesc,
	})
	if err != nil {
		return nil, appErr.Unavailable(err)
	}
	return docs, nil
}
