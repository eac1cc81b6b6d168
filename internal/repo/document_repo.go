package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mdocs/internal/model"
	"github.com/xxxsen/mdocs/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
)

const documentTable = "documents"

var documentColumns = []string{
	"id", "user_id", "title", "content", "starred", "is_public", "share_link_id",
	"last_accessed_at", "deleted_at", "version", "ctime", "mtime",
}

// DocumentRepo stores documents in postgres or sqlite. Every write is scoped
// by id, owner and the expected version so read-modify-write cycles in the
// service layer cannot lose updates.
type DocumentRepo struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
}

func NewDocumentRepo(db *sql.DB, driver string, timeout time.Duration) *DocumentRepo {
	return &DocumentRepo{db: db, driver: driver, timeout: timeout}
}

func (r *DocumentRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	data := map[string]interface{}{
		"id":               doc.ID,
		"user_id":          doc.UserID,
		"title":            doc.Title,
		"content":          doc.Content,
		"starred":          dbutil.BoolToInt(doc.Starred),
		"is_public":        dbutil.BoolToInt(doc.IsPublic),
		"share_link_id":    nullableString(doc.ShareLinkID),
		"last_accessed_at": doc.LastAccessedAt,
		"deleted_at":       doc.DeletedAt,
		"version":          doc.Version,
		"ctime":            doc.Ctime,
		"mtime":            doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(documentTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	return r.getOne(ctx, map[string]interface{}{"id": docID})
}

func (r *DocumentRepo) GetByShareLink(ctx context.Context, linkID string) (*model.Document, error) {
	if linkID == "" {
		return nil, appErr.ErrNotFound
	}
	return r.getOne(ctx, map[string]interface{}{"share_link_id": linkID})
}

func (r *DocumentRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	sqlStr, args, err := builder.BuildSelect(documentTable, where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	doc, err := scanDocument(rows)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []model.Document{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	where := buildWhere(filter)
	where["_orderby"] = filter.orderClause()
	if filter.Limit > 0 {
		where["_limit"] = []uint{filter.Offset, filter.Limit}
	}
	sqlStr, args, err := builder.BuildSelect(documentTable, where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	where := map[string]interface{}{
		"id":      doc.ID,
		"user_id": doc.UserID,
		"version": version,
	}
	update := map[string]interface{}{
		"title":            doc.Title,
		"content":          doc.Content,
		"starred":          dbutil.BoolToInt(doc.Starred),
		"is_public":        dbutil.BoolToInt(doc.IsPublic),
		"share_link_id":    nullableString(doc.ShareLinkID),
		"last_accessed_at": doc.LastAccessedAt,
		"deleted_at":       doc.DeletedAt,
		"version":          doc.Version,
		"mtime":            doc.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate(documentTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.missReason(ctx, doc.UserID, doc.ID)
	}
	return nil
}

// Delete removes an owned document. A positive version makes the delete
// conditional on the document not having changed since it was read.
func (r *DocumentRepo) Delete(ctx context.Context, userID, docID string, version int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
	}
	if version > 0 {
		where["version"] = version
	}
	sqlStr, args, err := builder.BuildDelete(documentTable, where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.missReason(ctx, userID, docID)
	}
	return nil
}

func (r *DocumentRepo) missReason(ctx context.Context, userID, docID string) error {
	current, err := r.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if current.UserID != userID {
		return appErr.ErrNotFound
	}
	return appErr.ErrConflict
}

func buildWhere(filter DocumentFilter) map[string]interface{} {
	where := map[string]interface{}{}
	if filter.UserID != "" {
		where["user_id"] = filter.UserID
	}
	if len(filter.IDs) > 0 {
		ids := make([]interface{}, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, id)
		}
		where["id in"] = ids
	}
	switch filter.State {
	case StateActive:
		where["deleted_at"] = 0
	case StateTrashed:
		where["deleted_at >"] = 0
	}
	if filter.DeletedBefore > 0 {
		where["deleted_at >"] = 0
		where["deleted_at <"] = filter.DeletedBefore
	}
	if filter.StarredOnly {
		where["starred"] = 1
	}
	if filter.AccessedOnly {
		where["last_accessed_at >"] = 0
	}
	return where
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc      model.Document
		starred  int
		isPublic int
		link     sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Content, &starred, &isPublic, &link,
		&doc.LastAccessedAt, &doc.DeletedAt, &doc.Version, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	doc.Starred = starred != 0
	doc.IsPublic = isPublic != 0
	doc.ShareLinkID = link.String
	return &doc, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
