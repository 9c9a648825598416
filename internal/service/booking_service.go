package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
	"tourbook/internal/repository"
)

// tripFinder is the slice of TripRepository the booking flow needs.
type tripFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Trip, error)
}

// bookingWriter is the slice of the bookings collection the booking flow needs.
type bookingWriter interface {
	InsertOne(ctx context.Context, booking *model.Booking) (primitive.ObjectID, error)
}

// BookingService builds checkout sessions and fulfills verified payments.
type BookingService interface {
	CreateCheckoutSession(ctx context.Context, user *model.User, tripID primitive.ObjectID) (*model.CheckoutSession, error)
	FulfillCheckout(ctx context.Context, payload []byte, signature string) error
}

type bookingService struct {
	trips    tripFinder
	users    repository.UserRepository
	bookings bookingWriter
	provider CheckoutProvider
	baseURL  string
}

func NewBookingService(trips tripFinder, users repository.UserRepository, bookings bookingWriter, provider CheckoutProvider, baseURL string) BookingService {
	return &bookingService{
		trips:    trips,
		users:    users,
		bookings: bookings,
		provider: provider,
		baseURL:  baseURL,
	}
}

// CreateCheckoutSession builds the provider payload for the booked trip and
// returns the opaque session handle for the client to redirect to.
func (s *bookingService) CreateCheckoutSession(ctx context.Context, user *model.User, tripID primitive.ObjectID) (*model.CheckoutSession, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("trip", tripID.Hex())
		}
		return nil, fmt.Errorf("failed to load trip for checkout: %w", err)
	}

	session, err := s.provider.CreateSession(ctx, CheckoutRequest{
		TripID:        trip.ID.Hex(),
		TripName:      trip.Name,
		TripSummary:   trip.Summary,
		AmountCents:   int64(math.Round(trip.Price * 100)),
		Currency:      "usd",
		CustomerEmail: user.Email,
		SuccessURL:    s.baseURL + "/my-trips",
		CancelURL:     s.baseURL + "/trips/" + trip.Slug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session, nil
}

// FulfillCheckout creates the paid booking from a signature-verified payment
// event. Unverifiable payloads are rejected; nothing is ever fulfilled from
// redirect query parameters.
func (s *bookingService) FulfillCheckout(ctx context.Context, payload []byte, signature string) error {
	completed, err := s.provider.VerifyEvent(payload, signature)
	if err != nil {
		return apperror.BadRequest("could not verify payment event")
	}
	if completed == nil {
		// event type the core ignores
		return nil
	}

	tripID, err := primitive.ObjectIDFromHex(completed.TripID)
	if err != nil {
		return fmt.Errorf("payment event carries invalid trip reference %q: %w", completed.TripID, err)
	}
	user, err := s.users.FindByEmail(ctx, completed.CustomerEmail)
	if err != nil {
		return fmt.Errorf("failed to resolve paying user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("payment event references unknown user %q", completed.CustomerEmail)
	}

	booking := &model.Booking{
		Trip:      tripID,
		User:      user.ID,
		Price:     float64(completed.AmountCents) / 100,
		CreatedAt: time.Now(),
		Paid:      true,
	}
	if _, err := s.bookings.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to record booking: %w", err)
	}
	return nil
}
