package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/middleware"
	"tourbook/internal/model"
	"tourbook/internal/repository"
	"tourbook/internal/service"
)

// BookingHandler serves checkout creation, webhook fulfillment and the staff
// booking CRUD.
type BookingHandler struct {
	bookings service.BookingService
	factory  *Factory[model.Booking]
	logger   zerolog.Logger
}

func NewBookingHandler(bookings service.BookingService, coll *repository.Collection[model.Booking], logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		factory:  NewFactory(coll, "booking", logger),
		logger:   logger,
	}
}

// CheckoutSession creates a payment session for the trip and returns its
// redirect handle. The booking itself is only created by the webhook.
func (h *BookingHandler) CheckoutSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, apperror.Unauthorized("you are not logged in, please log in to get access"))
		return
	}
	tripID, err := primitive.ObjectIDFromHex(c.Param("tripId"))
	if err != nil {
		respondError(c, h.logger, apperror.BadRequest("invalid trip id: "+c.Param("tripId")))
		return
	}

	session, err := h.bookings.CreateCheckoutSession(c.Request.Context(), user, tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
}

// Webhook fulfills a checkout from a signature-verified provider event. This
// is the only path that marks a booking paid.
func (h *BookingHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, apperror.BadRequest("could not read webhook payload"))
		return
	}

	if err := h.bookings.FulfillCheckout(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// RegisterBookingRoutes mounts the booking routes. The webhook stays outside
// the protected group: the provider authenticates by signature, not session.
func (h *BookingHandler) RegisterBookingRoutes(rg *gin.RouterGroup, protect, staffOnly gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("/webhook", h.Webhook)
		bookings.GET("/checkout-session/:tripId", protect, h.CheckoutSession)

		bookings.GET("", protect, staffOnly, h.factory.List)
		bookings.POST("", protect, staffOnly, h.factory.CreateOne)
		bookings.GET("/:id", protect, staffOnly, h.factory.GetOne)
		bookings.PATCH("/:id", protect, staffOnly, h.factory.UpdateOne)
		bookings.DELETE("/:id", protect, staffOnly, h.factory.DeleteOne)
	}
}
