package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/filestore"
	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/pkg/timeutil"
	"github.com/xxxsen/mdocs/internal/repo"
)

type ExportPayload struct {
	UserID     string           `json:"user_id"`
	ExportedAt int64            `json:"exported_at"`
	Documents  []model.Document `json:"documents"`
}

type ExportService struct {
	docs  DocumentRepository
	store filestore.Store
	now   timeutil.Clock
}

func NewExportService(docs DocumentRepository, store filestore.Store, clock timeutil.Clock) *ExportService {
	return &ExportService{docs: docs, store: store, now: clock}
}

// Export returns every document the caller owns, trashed ones included, in
// the persisted shape.
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportPayload, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{UserID: userID, State: repo.StateAny, Order: repo.OrderMtimeDesc})
	if err != nil {
		return nil, appErr.Unavailable(err)
	}
	return &ExportPayload{UserID: userID, ExportedAt: s.now.NowUnix(), Documents: docs}, nil
}

// Backup writes the export to the file store and returns its key.
func (s *ExportService) Backup(ctx context.Context, userID string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("file store is not configured")
	}
	payload, err := s.Export(ctx, userID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%s/%d.json", userID, payload.ExportedAt)
	if err := s.store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", appErr.Unavailable(err)
	}
	logutil.GetLogger(ctx).Info("export backup saved",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.Int("documents", len(payload.Documents)),
	)
	return key, nil
}
