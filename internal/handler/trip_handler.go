package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
	"tourbook/internal/query"
	"tourbook/internal/repository"
)

// earth radii used to convert a distance to radians for $centerSphere
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

// meter multipliers for the distance aggregation
const (
	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// TripHandler serves the trip catalog: CRUD, curated aliases, aggregations
// and geospatial lookups.
type TripHandler struct {
	trips   *repository.TripRepository
	reviews *repository.ReviewRepository
	factory *Factory[model.Trip]
	logger  zerolog.Logger
}

func NewTripHandler(trips *repository.TripRepository, reviews *repository.ReviewRepository, logger zerolog.Logger) *TripHandler {
	h := &TripHandler{trips: trips, reviews: reviews, logger: logger}
	h.factory = NewFactory(trips.Collection, "trip", logger).
		WithHooks(Hooks[model.Trip]{
			BeforeCreate: h.prepareNewTrip,
			Expand:       h.attachReviews,
		})
	return h
}

// attachReviews expands a trip detail response with its reviews.
func (h *TripHandler) attachReviews(c *gin.Context, trip *model.Trip) (gin.H, error) {
	opts, err := query.Translate(nil)
	if err != nil {
		return nil, err
	}
	reviews, err := h.reviews.Find(c.Request.Context(), opts, bson.M{"trip": trip.ID})
	if err != nil {
		return nil, err
	}
	return gin.H{"reviews": reviews}, nil
}

// prepareNewTrip fills the server-owned fields of a trip being created.
func (h *TripHandler) prepareNewTrip(_ *gin.Context, trip *model.Trip) error {
	trip.Slug = slugify(trip.Name)
	trip.CreatedAt = time.Now()
	if trip.RatingsAverage == 0 {
		trip.RatingsAverage = 4.5
	}
	return nil
}

// TopRated presets the listing query to the five best-rated trips.
func (h *TripHandler) TopRated(c *gin.Context) {
	c.Request.URL.RawQuery = "limit=5&sort=-ratingsAverage,price&fields=name,price,ratingsAverage,summary,difficulty"
	h.factory.List(c)
}

func (h *TripHandler) Stats(c *gin.Context) {
	stats, err := h.trips.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, len(stats), stats)
}

func (h *TripHandler) MonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondError(c, h.logger, apperror.BadRequest("invalid year: "+c.Param("year")))
		return
	}

	plan, err := h.trips.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, len(plan), plan)
}

// Within lists trips starting within :distance of :latlng, e.g.
// /trips/within/200/center/34.11,-118.11/unit/mi.
func (h *TripHandler) Within(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 {
		respondError(c, h.logger, apperror.BadRequest("invalid distance: "+c.Param("distance")))
		return
	}
	lat, lng, appErr := parseLatLng(c.Param("latlng"))
	if appErr != nil {
		respondError(c, h.logger, appErr)
		return
	}
	radiusDivisor, _, appErr := unitFactors(c.Param("unit"))
	if appErr != nil {
		respondError(c, h.logger, appErr)
		return
	}

	trips, err := h.trips.FindWithin(c.Request.Context(), lng, lat, distance/radiusDivisor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, len(trips), trips)
}

// Distances lists every trip with its distance from :latlng.
func (h *TripHandler) Distances(c *gin.Context) {
	lat, lng, appErr := parseLatLng(c.Param("latlng"))
	if appErr != nil {
		respondError(c, h.logger, appErr)
		return
	}
	_, multiplier, appErr := unitFactors(c.Param("unit"))
	if appErr != nil {
		respondError(c, h.logger, appErr)
		return
	}

	distances, err := h.trips.DistancesFrom(c.Request.Context(), lng, lat, multiplier)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, len(distances), distances)
}

// RegisterTripRoutes mounts the trip routes. Reads are public (with the
// session attached when one is presented); writes are restricted to staff
// roles.
func (h *TripHandler) RegisterTripRoutes(rg *gin.RouterGroup, maybeAuth, protect, staffOnly, planningRoles gin.HandlerFunc) {
	trips := rg.Group("/trips")
	trips.Use(maybeAuth)
	{
		trips.GET("", h.factory.List)
		trips.GET("/top-5-rated", h.TopRated)
		trips.GET("/stats", h.Stats)
		trips.GET("/monthly-plan/:year", protect, planningRoles, h.MonthlyPlan)
		trips.GET("/within/:distance/center/:latlng/unit/:unit", h.Within)
		trips.GET("/distances/:latlng/unit/:unit", h.Distances)
		trips.GET("/:id", h.factory.GetOne)

		trips.POST("", protect, staffOnly, h.factory.CreateOne)
		trips.PATCH("/:id", protect, staffOnly, h.factory.UpdateOne)
		trips.DELETE("/:id", protect, staffOnly, h.factory.DeleteOne)
	}
}

// parseLatLng splits a "lat,lng" path segment.
func parseLatLng(latlng string) (lat, lng float64, appErr *apperror.Error) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return 0, 0, apperror.BadRequest("please provide latitude and longitude in the format lat,lng")
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return 0, 0, apperror.BadRequest("please provide latitude and longitude in the format lat,lng")
	}
	return lat, lng, nil
}

// unitFactors returns the earth radius divisor and the meter multiplier for
// a distance unit.
func unitFactors(unit string) (radiusDivisor, multiplier float64, appErr *apperror.Error) {
	switch unit {
	case "mi":
		return earthRadiusMiles, metersToMiles, nil
	case "km":
		return earthRadiusKm, metersToKm, nil
	default:
		return 0, 0, apperror.BadRequest("unit must be mi or km")
	}
}

// slugify lowercases a name and collapses every non-alphanumeric run into a
// single hyphen.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
