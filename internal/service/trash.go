package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/metrics"
	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/repo"
)

type TrashedDocument struct {
	model.Document
	ExpiresAt int64 `json:"expires_at"`
	Expired   bool  `json:"expired"`
}

func (s *DocumentService) Retention() int64 {
	return int64(s.retention.Seconds())
}

func (s *DocumentService) annotate(doc model.Document, now int64) TrashedDocument {
	window := s.Retention()
	return TrashedDocument{
		Document:  doc,
		ExpiresAt: doc.DeletedAt + window,
		Expired:   now-doc.DeletedAt > window,
	}
}

// ListTrashed returns the caller's trash, newest deletion first, with the
// purge deadline of each entry.
func (s *DocumentService) ListTrashed(ctx context.Context, userID string) ([]TrashedDocument, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID: userID,
		State:  repo.StateTrashed,
		Order:  repo.OrderDeletedAtDesc,
	})
	if err != nil {
		return nil, appErr.Unavailable(err)
	}
	now := s.now.NowUnix()
	out := make([]TrashedDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, s.annotate(doc, now))
	}
	return out, nil
}

func (s *DocumentService) ListExpired(ctx context.Context, userID string) ([]TrashedDocument, error) {
	trashed, err := s.ListTrashed(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]TrashedDocument, 0, len(trashed))
	for _, item := range trashed {
		if item.Expired {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *DocumentService) SweepUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, appErr.ErrUnauthorized
	}
	return s.sweep(ctx, userID, "user")
}

func (s *DocumentService) SweepAll(ctx context.Context) (int, error) {
	return s.sweep(ctx, "", "global")
}

// sweep purges every trashed document in scope whose retention elapsed. A
// document modified after the scan keeps its new version and survives.
func (s *DocumentService) sweep(ctx context.Context, userID, scope string) (int, error) {
	cutoff := s.now.NowUnix() - s.Retention()
	if cutoff <= 0 {
		return 0, nil
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID:        userID,
		State:         repo.StateTrashed,
		DeletedBefore: cutoff,
		Order:         repo.OrderDeletedAtDesc,
	})
	if err != nil {
		return 0, appErr.Unavailable(err)
	}
	logger := logutil.GetLogger(ctx)
	purged := 0
	defer func() {
		metrics.Swept.WithLabelValues(scope).Add(float64(purged))
		metrics.Transitions.WithLabelValues(metrics.TransitionExpire).Add(float64(purged))
	}()
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		err := s.purge(ctx, &docs[i])
		switch {
		case err == nil:
			purged++
		case appErr.IsNotFound(err), appErr.IsConflict(err):
			logger.Debug("skip sweeping changed document", zap.String("doc_id", docs[i].ID), zap.Error(err))
		default:
			logger.Warn("sweep document failed",
				zap.String("user_id", docs[i].UserID),
				zap.String("doc_id", docs[i].ID),
				zap.Error(err),
			)
		}
	}
	return purged, nil
}
