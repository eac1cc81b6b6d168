package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/mdocs/internal/model"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
)

// MongoDocumentRepo stores one bson document per record, keyed by _id.
// Version-guarded ReplaceOne/DeleteOne give the same per-record atomicity as
// the SQL repo.
type MongoDocumentRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoDocumentRepo(ctx context.Context, col *mongo.Collection, timeout time.Duration) (*MongoDocumentRepo, error) {
	r := &MongoDocumentRepo{col: col, timeout: timeout}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "share_link_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		{Keys: bson.D{{Key: "deleted_at", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDocumentRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *MongoDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *MongoDocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	return r.findOne(ctx, bson.M{"_id": docID})
}

func (r *MongoDocumentRepo) GetByShareLink(ctx context.Context, linkID string) (*model.Document, error) {
	if linkID == "" {
		return nil, appErr.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"share_link_id": linkID})
}

func (r *MongoDocumentRepo) findOne(ctx context.Context, filter bson.M) (*model.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var doc model.Document
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *MongoDocumentRepo) List(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []model.Document{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(mongoSort(filter.Order))
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	docs := make([]model.Document, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *MongoDocumentRepo) CompareAndSwap(ctx context.Context, doc *model.Document, version int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"_id": doc.ID, "user_id": doc.UserID, "version": version}
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.ErrConflict
		}
		return err
	}
	if res.MatchedCount == 0 {
		return r.missReason(ctx, doc.UserID, doc.ID)
	}
	return nil
}

func (r *MongoDocumentRepo) Delete(ctx context.Context, userID, docID string, version int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"_id": docID, "user_id": userID}
	if version > 0 {
		filter["version"] = version
	}
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return r.missReason(ctx, userID, docID)
	}
	return nil
}

func (r *MongoDocumentRepo) missReason(ctx context.Context, userID, docID string) error {
	current, err := r.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if current.UserID != userID {
		return appErr.ErrNotFound
	}
	return appErr.ErrConflict
}

func mongoFilter(filter DocumentFilter) bson.M {
	out := bson.M{}
	if filter.UserID != "" {
		out["user_id"] = filter.UserID
	}
	if len(filter.IDs) > 0 {
		out["_id"] = bson.M{"$in": filter.IDs}
	}
	switch filter.State {
	case StateActive:
		out["deleted_at"] = int64(0)
	case StateTrashed:
		out["deleted_at"] = bson.M{"$gt": int64(0)}
	}
	if filter.DeletedBefore > 0 {
		out["deleted_at"] = bson.M{"$gt": int64(0), "$lt": filter.DeletedBefore}
	}
	if filter.StarredOnly {
		out["starred"] = true
	}
	if filter.AccessedOnly {
		out["last_accessed_at"] = bson.M{"$gt": int64(0)}
	}
	return out
}

func mongoSort(order DocumentOrder) bson.D {
	switch order {
	case OrderDeletedAtDesc:
		return bson.D{{Key: "deleted_at", Value: -1}, {Key: "_id", Value: 1}}
	case OrderLastAccessedDesc:
		return bson.D{{Key: "last_accessed_at", Value: -1}, {Key: "mtime", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "mtime", Value: -1}, {Key: "_id", Value: 1}}
	}
}
