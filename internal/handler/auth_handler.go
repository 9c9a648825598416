package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tourbook/internal/apperror"
	"tourbook/internal/middleware"
	"tourbook/internal/model"
	"tourbook/internal/service"
	"tourbook/internal/utils"
)

const sessionCookie = "jwt"

// AuthHandler handles the account credential lifecycle routes.
type AuthHandler struct {
	auth         service.AuthService
	tokens       *utils.TokenService
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie should be true in
// production so the session cookie is HTTPS-only.
func NewAuthHandler(auth service.AuthService, tokens *utils.TokenService, secureCookie bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, secureCookie: secureCookie, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, token, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusCreated, user, token)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}

// Logout overwrites the session cookie with a short-lived dummy value.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "loggedout", 10, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "token sent to email"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, token, err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}

func (h *AuthHandler) UpdateMyPassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, apperror.Unauthorized("you are not logged in, please log in to get access"))
		return
	}

	var req model.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	updated, token, err := h.auth.UpdatePassword(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, updated, token)
}

// sendToken answers with the session token in both the body and an httpOnly
// cookie.
func (h *AuthHandler) sendToken(c *gin.Context, status int, user *model.User, token string) {
	maxAge := int(h.tokens.Validity() / time.Second)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", h.secureCookie, true)
	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

// RegisterAuthRoutes mounts the credential routes under /users.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, protect gin.HandlerFunc) {
	users := rg.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgot-password", h.ForgotPassword)
		users.PATCH("/reset-password/:token", h.ResetPassword)
		users.PATCH("/update-my-password", protect, h.UpdateMyPassword)
	}
}
