package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// wrapError maps driver errors onto application errors and prefixes op
func wrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, apperrors.ErrResourceNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, apperrors.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// requireMatch turns an update that matched nothing into a not found error
func requireMatch(op string, res *mongo.UpdateResult, err error) error {
	if err != nil {
		return wrapError(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, apperrors.ErrResourceNotFound)
	}
	return nil
}

func pageOptions(skip, limit int64, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

// findAll runs a query and decodes every document into T
func findAll[T any](ctx context.Context, coll *mongo.Collection, op string, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapError(op, err)
	}
	return out, nil
}

// findOne decodes a single document into T
func findOne[T any](ctx context.Context, coll *mongo.Collection, op string, filter interface{}) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, wrapError(op, err)
	}
	return &out, nil
}

// findOneAndUpdate applies update and returns the document after the change
func findOneAndUpdate[T any](ctx context.Context, coll *mongo.Collection, op string, filter, update interface{}) (*T, error) {
	var out T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, wrapError(op, err)
	}
	return &out, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
