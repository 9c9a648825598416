package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/model"
)

// visibleTrips hides secret trips from every read.
var visibleTrips = bson.M{"secret": bson.M{"$ne": true}}

// TripRepository adds trip-specific aggregations and geospatial queries on
// top of the generic collection.
type TripRepository struct {
	*Collection[model.Trip]
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{
		Collection: NewCollection[model.Trip](db, "trips").WithScope(visibleTrips),
	}
}

// Stats groups trips by difficulty and reports count, rating and price
// aggregates per group.
func (r *TripRepository) Stats(ctx context.Context) ([]model.TripStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secret": bson.M{"$ne": true}, "ratingsAverage": bson.M{"$gte": 1.0}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTrips":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}

	var stats []model.TripStats
	if err := r.Aggregate(ctx, pipeline, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// MonthlyPlan unwinds start dates and buckets trips by starting month for the
// given year.
func (r *TripRepository) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlanEntry, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secret": bson.M{"$ne": true}}}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{
			"$gte": from,
			"$lte": to,
		}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTripStarts": bson.M{"$sum": 1},
			"trips":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.M{"numTripStarts": -1}}},
		{{Key: "$limit", Value: 12}},
	}

	var plan []model.MonthlyPlanEntry
	if err := r.Aggregate(ctx, pipeline, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// FindWithin returns trips whose start location lies within radius (in
// radians) of the given point.
func (r *TripRepository) FindWithin(ctx context.Context, lng, lat, radius float64) ([]model.Trip, error) {
	filter := bson.M{
		"secret": bson.M{"$ne": true},
		"startLocation": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, radius},
			},
		},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips within radius: %w", err)
	}
	trips := []model.Trip{}
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips within radius: %w", err)
	}
	return trips, nil
}

// DistancesFrom returns all trips ordered by distance from the given point.
// The multiplier converts meters to the caller's unit.
func (r *TripRepository) DistancesFrom(ctx context.Context, lng, lat, multiplier float64) ([]model.TripDistance, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": bson.A{lng, lat},
			},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
			"key":                "startLocation",
		}}},
		{{Key: "$match", Value: bson.M{"secret": bson.M{"$ne": true}}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}

	var distances []model.TripDistance
	if err := r.Aggregate(ctx, pipeline, &distances); err != nil {
		return nil, err
	}
	return distances, nil
}

// UpdateRatings writes the recomputed review aggregate onto a trip. It
// bypasses the secret-trip scope on purpose: aggregates stay correct even
// for hidden trips.
func (r *TripRepository) UpdateRatings(ctx context.Context, tripID primitive.ObjectID, average float64, quantity int) error {
	_, err := r.coll.UpdateByID(ctx, tripID, bson.M{
		"$set": bson.M{
			"ratingsAverage":  average,
			"ratingsQuantity": quantity,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update trip ratings: %w", err)
	}
	return nil
}
