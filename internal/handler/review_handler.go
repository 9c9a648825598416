package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/middleware"
	"tourbook/internal/model"
	"tourbook/internal/repository"
)

// ReviewHandler serves review CRUD, both standalone and nested under a trip.
// Every write triggers the trip rating recompute.
type ReviewHandler struct {
	reviews *repository.ReviewRepository
	factory *Factory[model.Review]
	logger  zerolog.Logger
}

func NewReviewHandler(reviews *repository.ReviewRepository, logger zerolog.Logger) *ReviewHandler {
	h := &ReviewHandler{reviews: reviews, logger: logger}
	h.factory = NewFactory(reviews.Collection, "review", logger).
		WithWritable("review", "rating").
		WithHooks(Hooks[model.Review]{
			ListFilter:   h.tripScope,
			BeforeCreate: h.prepareNewReview,
			AfterWrite:   h.recalcRatings,
			AfterDelete:  h.recalcRatings,
		})
	return h
}

// tripScope narrows nested listings to the trip in the path. A malformed trip
// id is rejected rather than widened to an unscoped listing.
func (h *ReviewHandler) tripScope(c *gin.Context) (bson.M, error) {
	raw := c.Param("id")
	if raw == "" {
		// the flat /reviews route has no trip segment
		return nil, nil
	}
	tripID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperror.BadRequest("invalid trip id: " + raw)
	}
	return bson.M{"trip": tripID}, nil
}

// prepareNewReview stamps ownership: the author is always the authenticated
// user, the trip comes from the nested path when present.
func (h *ReviewHandler) prepareNewReview(c *gin.Context, review *model.Review) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.Unauthorized("you are not logged in, please log in to get access")
	}
	review.User = user.ID
	review.CreatedAt = time.Now()

	if tripID, err := primitive.ObjectIDFromHex(c.Param("id")); err == nil {
		review.Trip = tripID
	}
	if review.Trip.IsZero() {
		return apperror.BadRequest("review must reference a trip")
	}
	return nil
}

func (h *ReviewHandler) recalcRatings(ctx context.Context, review *model.Review) error {
	return h.reviews.RecalcTripRatings(ctx, review.Trip)
}

// RegisterReviewRoutes mounts /reviews and the nested /trips/:id/reviews
// routes. Everything requires a session; creating is for regular users,
// editing for the author role and admins.
func (h *ReviewHandler) RegisterReviewRoutes(rg *gin.RouterGroup, protect, userOnly, editors gin.HandlerFunc) {
	reviews := rg.Group("/reviews")
	reviews.Use(protect)
	{
		reviews.GET("", h.factory.List)
		reviews.POST("", userOnly, h.factory.CreateOne)
		reviews.GET("/:id", h.factory.GetOne)
		reviews.PATCH("/:id", editors, h.factory.UpdateOne)
		reviews.DELETE("/:id", editors, h.factory.DeleteOne)
	}

	nested := rg.Group("/trips/:id/reviews")
	nested.Use(protect)
	{
		nested.GET("", h.factory.List)
		nested.POST("", userOnly, h.factory.CreateOne)
	}
}
