package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/query"
	"tourbook/internal/repository"
)

// identifiable lets the factory stamp the generated id onto a created
// document before responding.
type identifiable interface {
	SetID(primitive.ObjectID)
}

// fields no update may ever touch, regardless of the writable schema
var blockedFields = map[string]struct{}{
	"_id":                  {},
	"id":                   {},
	"password":             {},
	"passwordChangedAt":    {},
	"passwordResetToken":   {},
	"passwordResetExpires": {},
}

// Hooks are the named extension points of the generic handler. Every hook is
// optional and explicit; there is no lifecycle matching by operation name.
type Hooks[T any] struct {
	// ListFilter contributes a server-imposed filter merged over the caller's
	// query (nested routes, ownership scoping). An error rejects the request.
	ListFilter func(c *gin.Context) (bson.M, error)
	// Expand attaches related data to a single-document response.
	Expand func(c *gin.Context, doc *T) (gin.H, error)
	// BeforeCreate fills server-owned fields on the bound document.
	BeforeCreate func(c *gin.Context, doc *T) error
	// AfterWrite runs once a create or update is persisted.
	AfterWrite func(ctx context.Context, doc *T) error
	// AfterDelete runs once a delete is persisted, with the removed document.
	AfterDelete func(ctx context.Context, doc *T) error
}

// Factory builds the CRUD handlers for one resource collection. Behavior is
// configured up front: writable-field schema, delete policy and hooks.
type Factory[T any] struct {
	coll       *repository.Collection[T]
	resource   string
	writable   map[string]struct{} // nil means every non-blocked field
	softDelete bool
	hooks      Hooks[T]
	logger     zerolog.Logger
}

func NewFactory[T any](coll *repository.Collection[T], resource string, logger zerolog.Logger) *Factory[T] {
	return &Factory[T]{coll: coll, resource: resource, logger: logger}
}

// WithWritable restricts UpdateOne to the named fields.
func (f *Factory[T]) WithWritable(fields ...string) *Factory[T] {
	f.writable = make(map[string]struct{}, len(fields))
	for _, field := range fields {
		f.writable[field] = struct{}{}
	}
	return f
}

// WithSoftDelete makes DeleteOne deactivate instead of remove.
func (f *Factory[T]) WithSoftDelete() *Factory[T] {
	f.softDelete = true
	return f
}

func (f *Factory[T]) WithHooks(hooks Hooks[T]) *Factory[T] {
	f.hooks = hooks
	return f
}

// List translates the caller's query, merges the server scope and returns the
// matching documents with their count.
func (f *Factory[T]) List(c *gin.Context) {
	opts, err := query.Translate(c.Request.URL.Query())
	if err != nil {
		respondError(c, f.logger, apperror.BadRequest(err.Error()))
		return
	}

	var extra bson.M
	if f.hooks.ListFilter != nil {
		extra, err = f.hooks.ListFilter(c)
		if err != nil {
			respondError(c, f.logger, err)
			return
		}
	}

	docs, err := f.coll.Find(c.Request.Context(), opts, extra)
	if err != nil {
		respondError(c, f.logger, err)
		return
	}
	respondList(c, len(docs), docs)
}

// GetOne resolves a single document by id; documents hidden by the read scope
// report not found.
func (f *Factory[T]) GetOne(c *gin.Context) {
	id, ok := f.paramID(c)
	if !ok {
		return
	}

	doc, err := f.coll.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, f.logger, apperror.NotFound(f.resource, id.Hex()))
			return
		}
		respondError(c, f.logger, err)
		return
	}

	payload := gin.H{"data": doc}
	if f.hooks.Expand != nil {
		extra, err := f.hooks.Expand(c, doc)
		if err != nil {
			respondError(c, f.logger, err)
			return
		}
		for k, v := range extra {
			payload[k] = v
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": payload})
}

// CreateOne binds and validates the full document, lets BeforeCreate fill
// server-owned fields and persists it.
func (f *Factory[T]) CreateOne(c *gin.Context) {
	doc := new(T)
	if err := c.ShouldBindJSON(doc); err != nil {
		respondError(c, f.logger, bindError(err))
		return
	}

	if f.hooks.BeforeCreate != nil {
		if err := f.hooks.BeforeCreate(c, doc); err != nil {
			respondError(c, f.logger, err)
			return
		}
	}

	id, err := f.coll.InsertOne(c.Request.Context(), doc)
	if err != nil {
		if field, dup := repository.DuplicateKeyField(err); dup {
			respondError(c, f.logger, apperror.Duplicate(field))
			return
		}
		respondError(c, f.logger, fmt.Errorf("failed to create %s: %w", f.resource, err))
		return
	}
	if res, ok := any(doc).(identifiable); ok {
		res.SetID(id)
	}

	if f.hooks.AfterWrite != nil {
		if err := f.hooks.AfterWrite(c.Request.Context(), doc); err != nil {
			respondError(c, f.logger, err)
			return
		}
	}
	respondData(c, http.StatusCreated, doc)
}

// UpdateOne applies a partial update restricted to the writable-field schema.
// The merged document is revalidated as a full write before anything is
// persisted.
func (f *Factory[T]) UpdateOne(c *gin.Context) {
	id, ok := f.paramID(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, f.logger, apperror.BadRequest("could not read request body"))
		return
	}

	patch := new(T)
	if err := json.Unmarshal(raw, patch); err != nil {
		respondError(c, f.logger, apperror.BadRequest("invalid request body"))
		return
	}
	var provided map[string]json.RawMessage
	if err := json.Unmarshal(raw, &provided); err != nil {
		respondError(c, f.logger, apperror.BadRequest("invalid request body"))
		return
	}

	patchDoc, err := toBsonM(patch)
	if err != nil {
		respondError(c, f.logger, err)
		return
	}
	set := bson.M{}
	for field := range provided {
		if !f.fieldWritable(field) {
			continue
		}
		if value, ok := patchDoc[field]; ok {
			set[field] = value
		}
	}
	if len(set) == 0 {
		respondError(c, f.logger, apperror.BadRequest("request contains no updatable fields"))
		return
	}

	existing, err := f.coll.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, f.logger, apperror.NotFound(f.resource, id.Hex()))
			return
		}
		respondError(c, f.logger, err)
		return
	}
	if err := f.validateMerged(existing, set); err != nil {
		respondError(c, f.logger, err)
		return
	}

	updated, err := f.coll.UpdateByID(c.Request.Context(), id, set)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, f.logger, apperror.NotFound(f.resource, id.Hex()))
			return
		}
		if field, dup := repository.DuplicateKeyField(err); dup {
			respondError(c, f.logger, apperror.Duplicate(field))
			return
		}
		respondError(c, f.logger, fmt.Errorf("failed to update %s: %w", f.resource, err))
		return
	}

	if f.hooks.AfterWrite != nil {
		if err := f.hooks.AfterWrite(c.Request.Context(), updated); err != nil {
			respondError(c, f.logger, err)
			return
		}
	}
	respondData(c, http.StatusOK, updated)
}

// DeleteOne removes (or deactivates) a document and answers 204.
func (f *Factory[T]) DeleteOne(c *gin.Context) {
	id, ok := f.paramID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// the AfterDelete hook needs the document that is about to disappear
	var doomed *T
	if f.hooks.AfterDelete != nil {
		var err error
		doomed, err = f.coll.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondError(c, f.logger, apperror.NotFound(f.resource, id.Hex()))
				return
			}
			respondError(c, f.logger, err)
			return
		}
	}

	var err error
	if f.softDelete {
		err = f.coll.SoftDeleteByID(ctx, id)
	} else {
		err = f.coll.DeleteByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, f.logger, apperror.NotFound(f.resource, id.Hex()))
			return
		}
		respondError(c, f.logger, err)
		return
	}

	if f.hooks.AfterDelete != nil {
		if err := f.hooks.AfterDelete(ctx, doomed); err != nil {
			respondError(c, f.logger, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (f *Factory[T]) paramID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, f.logger, apperror.BadRequest("invalid id: "+c.Param("id")))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (f *Factory[T]) fieldWritable(field string) bool {
	if _, blocked := blockedFields[field]; blocked {
		return false
	}
	if f.writable == nil {
		return true
	}
	_, ok := f.writable[field]
	return ok
}

// validateMerged overlays the patch on the stored document and runs the full
// binding validation, so a partial update cannot produce an invalid document.
func (f *Factory[T]) validateMerged(existing *T, set bson.M) error {
	merged, err := toBsonM(existing)
	if err != nil {
		return err
	}
	for k, v := range set {
		merged[k] = v
	}

	raw, err := bson.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode merged document: %w", err)
	}
	candidate := new(T)
	if err := bson.Unmarshal(raw, candidate); err != nil {
		return apperror.BadRequest("invalid field value in request body")
	}
	if err := binding.Validator.ValidateStruct(candidate); err != nil {
		return bindError(err)
	}
	return nil
}

func toBsonM(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return m, nil
}
