package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/model"
)

// review aggregates fall back to these when a trip has no reviews left
const (
	defaultRatingsAverage  = 4.5
	defaultRatingsQuantity = 0
)

// ReviewRepository adds the rating recompute on top of the generic
// collection. The recompute always keys on the review's trip reference.
type ReviewRepository struct {
	*Collection[model.Review]
	trips *TripRepository
}

func NewReviewRepository(db *mongo.Database, trips *TripRepository) *ReviewRepository {
	return &ReviewRepository{
		Collection: NewCollection[model.Review](db, "reviews"),
		trips:      trips,
	}
}

type ratingAggregate struct {
	NumRating int     `bson:"numRating"`
	AvgRating float64 `bson:"avgRating"`
}

// RecalcTripRatings recomputes a trip's ratingsAverage and ratingsQuantity
// from its reviews and writes the result onto the trip. Called after every
// review create, update and delete.
func (r *ReviewRepository) RecalcTripRatings(ctx context.Context, tripID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"trip": tripID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$trip",
			"numRating": bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}

	var results []ratingAggregate
	if err := r.Aggregate(ctx, pipeline, &results); err != nil {
		return err
	}

	if len(results) == 0 {
		return r.trips.UpdateRatings(ctx, tripID, defaultRatingsAverage, defaultRatingsQuantity)
	}
	return r.trips.UpdateRatings(ctx, tripID, results[0].AvgRating, results[0].NumRating)
}
