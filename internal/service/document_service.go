package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/metrics"
	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/pkg/timeutil"
	"github.com/xxxsen/mdocs/internal/repo"
)

const (
	DefaultTitle     = "Untitled Document"
	DefaultRetention = 7 * 24 * time.Hour

	maxCASAttempts   = 5
	defaultListLimit = 20
	maxListLimit     = 100
)

// errNoTransition aborts a mutation that is not valid from the current state.
var errNoTransition = errors.New("no transition")

type DocumentService struct {
	docs         DocumentRepository
	retention    time.Duration
	shareBaseURL string
	now          timeutil.Clock
}

type Option func(*DocumentService)

func WithClock(clock timeutil.Clock) Option {
	return func(s *DocumentService) {
		s.now = clock
	}
}

func NewDocumentService(docs DocumentRepository, retention time.Duration, shareBaseURL string, opts ...Option) *DocumentService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &DocumentService{
		docs:         docs,
		retention:    retention,
		shareBaseURL: strings.TrimSuffix(shareBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type DocumentCreateInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type DocumentUpdateInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}

func (s *DocumentService) Create(ctx context.Context, userID string, input DocumentCreateInput) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	now := s.now.NowUnix()
	doc := &model.Document{
		ID:      newID(),
		UserID:  userID,
		Title:   normalizeTitle(input.Title),
		Content: input.Content,
		Version: 1,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, appErr.Unavailable(err)
	}
	metrics.Transitions.WithLabelValues(metrics.TransitionCreate).Inc()
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, userID, docID string) (*model.Document, error) {
	doc, err := s.loadOwned(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsTrashed() {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID string, limit, offset uint) ([]model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID: userID,
		State:  repo.StateActive,
		Order:  repo.OrderMtimeDesc,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, appErr.Unavailable(err)
	}
	return docs, nil
}

func (s *DocumentService) Update(ctx context.Context, userID, docID string, input DocumentUpdateInput) (*model.Document, error) {
	return s.mutate(ctx, userID, docID, nil, func(doc *model.Document, now int64) error {
		if doc.IsTrashed() {
			return appErr.ErrNotFound
		}
		doc.Title = normalizeTitle(input.Title)
		doc.Content = input.Content
		doc.Mtime = now
		return nil
	})
}

// SoftDeleteMany moves the caller's active documents among ids to the trash
// and returns how many moved. Ids that are missing, foreign or already
// trashed are skipped. A failed write is logged and does not stop the batch.
func (s *DocumentService) SoftDeleteMany(ctx context.Context, userID string, ids []string) (int, error) {
	if userID == "" {
		return 0, appErr.ErrUnauthorized
	}
	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return 0, appErr.ErrInvalid
	}
	docs, err := s.docs.List(ctx, repo.DocumentFilter{
		UserID: userID,
		IDs:    unique,
		State:  repo.StateActive,
	})
	if err != nil {
		return 0, appErr.Unavailable(err)
	}
	logger := logutil.GetLogger(ctx)
	count := 0
	for i := range docs {
		_, err := s.mutate(ctx, userID, docs[i].ID, &docs[i], func(doc *model.Document, now int64) error {
			if doc.IsTrashed() {
				return errNoTransition
			}
			doc.DeletedAt = now
			doc.Mtime = now
			return nil
		})
		if err != nil {
			if !errors.Is(err, errNoTransition) && !appErr.IsNotFound(err) {
				logger.Warn("soft delete document failed",
					zap.String("user_id", userID),
					zap.String("doc_id", docs[i].ID),
					zap.Error(err),
				)
			}
			continue
		}
		count++
	}
	metrics.Transitions.WithLabelValues(metrics.TransitionSoftDelete).Add(float64(count))
	return count, nil
}

// Restore returns a trashed document to the active state. A missing, foreign
// or active document all report false with no error.
func (s *DocumentService) Restore(ctx context.Context, userID, docID string) (bool, error) {
	_, err := s.mutate(ctx, userID, docID, nil, func(doc *model.Document, now int64) error {
		if !doc.IsTrashed() {
			return errNoTransition
		}
		doc.DeletedAt = 0
		doc.Mtime = now
		return nil
	})
	switch {
	case err == nil:
		metrics.Transitions.WithLabelValues(metrics.TransitionRestore).Inc()
		return true, nil
	case errors.Is(err, errNoTransition), appErr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// PermanentDelete purges an owned document in either state.
func (s *DocumentService) PermanentDelete(ctx context.Context, userID, docID string) (bool, error) {
	if userID == "" {
		return false, appErr.ErrUnauthorized
	}
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		doc, err := s.loadOwned(ctx, userID, docID)
		if appErr.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		err = s.purge(ctx, doc)
		if err == nil {
			metrics.Transitions.WithLabelValues(metrics.TransitionPermanentDelete).Inc()
			return true, nil
		}
		if appErr.IsNotFound(err) {
			return false, nil
		}
		if !appErr.IsConflict(err) {
			return false, err
		}
	}
	return false, appErr.ErrConflict
}

// purge deletes doc only if it still carries the version it was read with.
func (s *DocumentService) purge(ctx context.Context, doc *model.Document) error {
	err := s.docs.Delete(ctx, doc.UserID, doc.ID, doc.Version)
	if err == nil || appErr.IsNotFound(err) || appErr.IsConflict(err) {
		return err
	}
	return appErr.Unavailable(err)
}

// loadOwned reads a document and hides it unless userID owns it.
func (s *DocumentService) loadOwned(ctx context.Context, userID, docID string) (*model.Document, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if docID == "" {
		return nil, appErr.ErrNotFound
	}
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, appErr.Unavailable(err)
	}
	if doc.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

type mutation func(doc *model.Document, now int64) error

// mutate runs a read-modify-write cycle guarded by the document version and
// retries on conflict. seed, when set, is used as the first read.
func (s *DocumentService) mutate(ctx context.Context, userID, docID string, seed *model.Document, fn mutation) (*model.Document, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		doc := seed.Clone()
		seed = nil
		if doc == nil {
			var err error
			if doc, err = s.loadOwned(ctx, userID, docID); err != nil {
				return nil, err
			}
		}
		version := doc.Version
		if err := fn(doc, s.now.NowUnix()); err != nil {
			return nil, err
		}
		doc.Version = version + 1
		err := s.docs.CompareAndSwap(ctx, doc, version)
		if err == nil {
			return doc, nil
		}
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrNotFound
		}
		if !appErr.IsConflict(err) {
			return nil, appErr.Unavailable(err)
		}
	}
	return nil, appErr.ErrConflict
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
