package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"tourbook/internal/apperror"
	"tourbook/internal/middleware"
	"tourbook/internal/model"
	"tourbook/internal/repository"
)

// UserHandler serves the self-service account routes and the admin user CRUD.
type UserHandler struct {
	users   *repository.Collection[model.User]
	factory *Factory[model.User]
	logger  zerolog.Logger
}

func NewUserHandler(users *repository.Collection[model.User], logger zerolog.Logger) *UserHandler {
	factory := NewFactory(users, "user", logger).
		WithWritable("name", "email", "role", "photo", "active").
		WithSoftDelete()
	return &UserHandler{users: users, factory: factory, logger: logger}
}

// Me returns the authenticated account.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, apperror.Unauthorized("you are not logged in, please log in to get access"))
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpdateMe changes the profile fields an account may edit about itself.
// Password changes go through their own route.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, apperror.Unauthorized("you are not logged in, please log in to get access"))
		return
	}

	var req model.UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Email != nil {
		set["email"] = strings.ToLower(*req.Email)
	}
	if len(set) == 0 {
		respondError(c, h.logger, apperror.BadRequest("request contains no updatable fields"))
		return
	}

	updated, err := h.users.UpdateByID(c.Request.Context(), user.ID, set)
	if err != nil {
		if field, dup := repository.DuplicateKeyField(err); dup {
			respondError(c, h.logger, apperror.Duplicate(field))
			return
		}
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, updated)
}

// DeleteMe deactivates the account; the document stays but no read surfaces
// it anymore.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, apperror.Unauthorized("you are not logged in, please log in to get access"))
		return
	}

	if err := h.users.SoftDeleteByID(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateUser exists so the admin collection route answers something sensible.
func (h *UserHandler) CreateUser(c *gin.Context) {
	respondError(c, h.logger, apperror.BadRequest("this route is not defined, please use /users/signup instead"))
}

// RegisterUserRoutes mounts the self-service routes and the admin CRUD.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, protect, adminOnly gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(protect)
	{
		users.GET("/me", h.Me)
		users.PATCH("/update-me", h.UpdateMe)
		users.DELETE("/delete-me", h.DeleteMe)
	}

	admin := rg.Group("/users")
	admin.Use(protect, adminOnly)
	{
		admin.GET("", h.factory.List)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.factory.GetOne)
		admin.PATCH("/:id", h.factory.UpdateOne)
		admin.DELETE("/:id", h.factory.DeleteOne)
	}
}
