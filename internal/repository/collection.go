package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourbook/internal/query"
)

// ErrNotFound is returned when an id resolves to no document after scope
// filtering.
var ErrNotFound = errors.New("document not found")

// Collection is a generic repository over a single mongo collection. An
// optional read scope is merged into every read filter so that soft-deleted
// or hidden documents never surface (inactive users, secret trips).
type Collection[T any] struct {
	coll  *mongo.Collection
	scope bson.M
}

// NewCollection creates a Collection for the named mongo collection.
func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name)}
}

// WithScope returns a copy whose reads are restricted by the given filter.
func (c *Collection[T]) WithScope(scope bson.M) *Collection[T] {
	return &Collection[T]{coll: c.coll, scope: scope}
}

// Find executes a translated query merged with the read scope and an
// optional server-imposed filter. An empty result is success.
func (c *Collection[T]) Find(ctx context.Context, opts query.Options, extra bson.M) ([]T, error) {
	filter := c.mergeFilters(opts.Filter, extra)

	findOpts := options.Find().
		SetSort(opts.Sort).
		SetProjection(opts.Projection).
		SetSkip(opts.Skip).
		SetLimit(opts.Limit)

	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s results: %w", c.coll.Name(), err)
	}
	return docs, nil
}

// FindByID resolves a single document by id, honoring the read scope.
func (c *Collection[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.FindOne(ctx, bson.M{"_id": id})
}

// FindOne resolves a single document by filter, honoring the read scope.
func (c *Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	doc := new(T)
	err := c.coll.FindOne(ctx, c.mergeFilters(filter, nil)).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	return doc, nil
}

// InsertOne persists a new document and returns its generated id.
func (c *Collection[T]) InsertOne(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// UpdateByID applies a partial $set update and returns the updated document.
func (c *Collection[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*T, error) {
	doc := new(T)
	err := c.coll.FindOneAndUpdate(
		ctx,
		c.mergeFilters(bson.M{"_id": id}, nil),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// DeleteByID removes a document permanently.
func (c *Collection[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, c.mergeFilters(bson.M{"_id": id}, nil))
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteByID flips the active flag instead of removing the document.
// Subsequent scoped reads exclude it.
func (c *Collection[T]) SoftDeleteByID(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.UpdateOne(
		ctx,
		c.mergeFilters(bson.M{"_id": id}, nil),
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate in %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Aggregate runs a pipeline and decodes all results into out, which must be
// a pointer to a slice.
func (c *Collection[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", c.coll.Name(), err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s aggregation: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *Collection[T]) mergeFilters(filter, extra bson.M) bson.M {
	merged := bson.M{}
	for k, v := range filter {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range c.scope {
		merged[k] = v
	}
	return merged
}

// DuplicateKeyField reports whether err is a unique-index violation and, if
// so, names the first field of the offending index.
func DuplicateKeyField(err error) (string, bool) {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return "", false
	}
	msg := err.Error()
	const marker = "index: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "value", true
	}
	name := msg[i+len(marker):]
	if j := strings.IndexByte(name, ' '); j >= 0 {
		name = name[:j]
	}
	// index names look like email_1 or trip_1_user_1
	if j := strings.IndexByte(name, '_'); j > 0 {
		name = name[:j]
	}
	if name == "" {
		return "value", true
	}
	return name, true
}
