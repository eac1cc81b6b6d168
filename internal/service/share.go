package service

import (
	"context"

	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
)

type ShareStatus struct {
	ShareLinkID string `json:"share_link_id"`
	ShareURL    string `json:"share_url"`
	IsPublic    bool   `json:"is_public"`
}

// SetShareStatus publishes or unpublishes an active document. The first
// publish mints the link; later calls reuse it, so a link handed out once
// keeps pointing at the same document.
func (s *DocumentService) SetShareStatus(ctx context.Context, userID, docID string, isPublic bool) (*ShareStatus, error) {
	doc, err := s.mutate(ctx, userID, docID, nil, func(doc *model.Document, now int64) error {
		if doc.IsTrashed() {
			return appErr.ErrNotFound
		}
		if isPublic && doc.ShareLinkID == "" {
			link, err := newShareLinkID()
			if err != nil {
				return appErr.Unavailable(err)
			}
			doc.ShareLinkID = link
		}
		doc.IsPublic = isPublic
		doc.Mtime = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.shareStatus(doc), nil
}

func (s *DocumentService) shareStatus(doc *model.Document) *ShareStatus {
	status := &ShareStatus{
		ShareLinkID: doc.ShareLinkID,
		IsPublic:    doc.IsPublic,
	}
	if doc.ShareLinkID != "" {
		status.ShareURL = s.shareBaseURL + "/documents/share/" + doc.ShareLinkID
	}
	return status
}

// ResolveShared looks a document up by share link for any caller. Unknown
// links and private documents look the same.
func (s *DocumentService) ResolveShared(ctx context.Context, linkID string) (*model.Document, error) {
	if linkID == "" {
		return nil, appErr.ErrNotFound
	}
	doc, err := s.docs.GetByShareLink(ctx, linkID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, appErr.Unavailable(err)
	}
	if !doc.IsPublic {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}
