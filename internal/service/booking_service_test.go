package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
	"tourbook/internal/repository"
)

type fakeTripFinder struct {
	trip *model.Trip
}

func (f *fakeTripFinder) FindByID(_ context.Context, id primitive.ObjectID) (*model.Trip, error) {
	if f.trip != nil && f.trip.ID == id {
		return f.trip, nil
	}
	return nil, repository.ErrNotFound
}

type fakeBookingWriter struct {
	inserted []*model.Booking
}

func (f *fakeBookingWriter) InsertOne(_ context.Context, booking *model.Booking) (primitive.ObjectID, error) {
	f.inserted = append(f.inserted, booking)
	return primitive.NewObjectID(), nil
}

type fakeCheckoutProvider struct {
	lastRequest CheckoutRequest
	completed   *CheckoutCompleted
	verifyErr   error
}

func (f *fakeCheckoutProvider) CreateSession(_ context.Context, req CheckoutRequest) (*model.CheckoutSession, error) {
	f.lastRequest = req
	return &model.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"}, nil
}

func (f *fakeCheckoutProvider) VerifyEvent(_ []byte, _ string) (*CheckoutCompleted, error) {
	return f.completed, f.verifyErr
}

func bookingFixture(t *testing.T) (BookingService, *fakeTripFinder, *fakeUserRepo, *fakeBookingWriter, *fakeCheckoutProvider, *model.Trip, *model.User) {
	t.Helper()
	trip := &model.Trip{
		ID:    primitive.NewObjectID(),
		Name:  "The Forest Hiker",
		Slug:  "the-forest-hiker",
		Price: 497,
	}
	user := &model.User{
		ID:    primitive.NewObjectID(),
		Email: "ada@example.com",
	}

	trips := &fakeTripFinder{trip: trip}
	users := newFakeUserRepo()
	users.byID[user.ID] = user
	bookings := &fakeBookingWriter{}
	provider := &fakeCheckoutProvider{}

	svc := NewBookingService(trips, users, bookings, provider, "http://localhost:8080")
	return svc, trips, users, bookings, provider, trip, user
}

func TestBookingService_CreateCheckoutSession(t *testing.T) {
	svc, _, _, _, provider, trip, user := bookingFixture(t)

	session, err := svc.CreateCheckoutSession(context.Background(), user, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)

	req := provider.lastRequest
	assert.Equal(t, trip.ID.Hex(), req.TripID)
	assert.Equal(t, int64(49700), req.AmountCents, "price is charged in cents")
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "ada@example.com", req.CustomerEmail)
	assert.Equal(t, "http://localhost:8080/my-trips", req.SuccessURL)
	assert.Equal(t, "http://localhost:8080/trips/the-forest-hiker", req.CancelURL)
}

func TestBookingService_CreateCheckoutSession_FractionalPrice(t *testing.T) {
	// 19.99 sits just below its exact value in binary, so a bare truncation
	// would charge 1998 cents
	trip := &model.Trip{ID: primitive.NewObjectID(), Name: "City Stroll", Slug: "city-stroll", Price: 19.99}
	user := &model.User{ID: primitive.NewObjectID(), Email: "ada@example.com"}
	provider := &fakeCheckoutProvider{}
	svc := NewBookingService(&fakeTripFinder{trip: trip}, newFakeUserRepo(), &fakeBookingWriter{}, provider, "http://localhost:8080")

	_, err := svc.CreateCheckoutSession(context.Background(), user, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), provider.lastRequest.AmountCents)
}

func TestBookingService_CreateCheckoutSession_TripNotFound(t *testing.T) {
	svc, _, _, _, _, _, user := bookingFixture(t)

	_, err := svc.CreateCheckoutSession(context.Background(), user, primitive.NewObjectID())

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestBookingService_FulfillCheckout(t *testing.T) {
	svc, _, _, bookings, provider, trip, user := bookingFixture(t)
	provider.completed = &CheckoutCompleted{
		TripID:        trip.ID.Hex(),
		CustomerEmail: user.Email,
		AmountCents:   49700,
	}

	err := svc.FulfillCheckout(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)

	require.Len(t, bookings.inserted, 1)
	booking := bookings.inserted[0]
	assert.Equal(t, trip.ID, booking.Trip)
	assert.Equal(t, user.ID, booking.User)
	assert.Equal(t, 497.0, booking.Price)
	assert.True(t, booking.Paid)
}

func TestBookingService_FulfillCheckout_BadSignature(t *testing.T) {
	svc, _, _, bookings, provider, _, _ := bookingFixture(t)
	provider.verifyErr = errors.New("signature mismatch")

	err := svc.FulfillCheckout(context.Background(), []byte(`{}`), "bad-sig")

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, bookings.inserted, "nothing is fulfilled from an unverified payload")
}

func TestBookingService_FulfillCheckout_IgnoredEvent(t *testing.T) {
	svc, _, _, bookings, provider, _, _ := bookingFixture(t)
	provider.completed = nil // provider filtered the event type out

	err := svc.FulfillCheckout(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	assert.Empty(t, bookings.inserted)
}

func TestBookingService_FulfillCheckout_UnknownUser(t *testing.T) {
	svc, _, _, bookings, provider, trip, _ := bookingFixture(t)
	provider.completed = &CheckoutCompleted{
		TripID:        trip.ID.Hex(),
		CustomerEmail: "ghost@example.com",
		AmountCents:   49700,
	}

	err := svc.FulfillCheckout(context.Background(), []byte(`{}`), "sig")

	assert.Error(t, err)
	assert.Empty(t, bookings.inserted)
}
