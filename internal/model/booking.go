package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking records a paid (or admin-created) reservation of a trip by a user.
type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Trip      primitive.ObjectID `bson:"trip" json:"trip" binding:"required"`
	User      primitive.ObjectID `bson:"user" json:"user" binding:"required"`
	Price     float64            `bson:"price" json:"price" binding:"required,gt=0"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Paid      bool               `bson:"paid" json:"paid"`
}

func (b *Booking) SetID(id primitive.ObjectID) { b.ID = id }

// CheckoutSession is the opaque handle returned by the payment provider.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}
