package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review belongs to exactly one user and one trip; a unique (trip, user)
// index enforces one review per user per trip.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review" binding:"required"`
	Rating    float64            `bson:"rating" json:"rating" binding:"required,min=1,max=5"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Trip      primitive.ObjectID `bson:"trip" json:"trip"`
}

func (r *Review) SetID(id primitive.ObjectID) { r.ID = id }
