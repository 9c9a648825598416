package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// GeoPoint is a GeoJSON point with optional itinerary metadata.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [lng, lat]
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

// Trip represents a tour listing. Secret trips are hidden from all reads.
type Trip struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name" binding:"required,min=10,max=40"`
	Slug            string               `bson:"slug,omitempty" json:"slug,omitempty"`
	Duration        int                  `bson:"duration" json:"duration" binding:"required,gt=0"`
	Destination     string               `bson:"destination,omitempty" json:"destination,omitempty"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize" binding:"required,gt=0"`
	Difficulty      string               `bson:"difficulty" json:"difficulty" binding:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage" binding:"omitempty,min=1,max=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	Price           float64              `bson:"price" json:"price" binding:"required,gt=0"`
	DiscountPrice   float64              `bson:"discountPrice,omitempty" json:"discountPrice,omitempty" binding:"omitempty,ltfield=Price"`
	Summary         string               `bson:"summary" json:"summary" binding:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover" binding:"required"`
	Images          []string             `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time          `bson:"startDates,omitempty" json:"startDates,omitempty"`
	Secret          bool                 `bson:"secret" json:"-"`
	StartLocation   *GeoPoint            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []GeoPoint           `bson:"locations,omitempty" json:"locations,omitempty"`
	Guides          []primitive.ObjectID `bson:"guides,omitempty" json:"guides,omitempty"`
}

func (t *Trip) SetID(id primitive.ObjectID) { t.ID = id }

// TripStats is one difficulty bucket of the stats aggregation.
type TripStats struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTrips   int     `bson:"numTrips" json:"numTrips"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthlyPlanEntry is one month bucket of the monthly-plan aggregation.
type MonthlyPlanEntry struct {
	Month     int      `bson:"month" json:"month"`
	NumStarts int      `bson:"numTripStarts" json:"numTripStarts"`
	Trips     []string `bson:"trips" json:"trips"`
}

// TripDistance is one result of the nearest-trips aggregation.
type TripDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}
