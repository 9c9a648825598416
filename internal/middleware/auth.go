package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
	"tourbook/internal/utils"
)

// CurrentUserKey is the gin context key holding the authenticated *model.User.
const CurrentUserKey = "currentUser"

// UserLoader resolves the account a verified token belongs to. A (nil, nil)
// result means the account no longer exists.
type UserLoader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
}

// Protect rejects requests without a valid session. The credential is read
// from the Authorization bearer header first, then from the jwt cookie. On
// success the full user document is stored in the request context.
func Protect(tokens *utils.TokenService, users UserLoader, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, appErr := resolveUser(c, tokens, users)
		if appErr != nil {
			abortWithError(c, log, appErr)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// MaybeAuth attaches the current user when a valid credential is present and
// silently continues otherwise. It never rejects a request.
func MaybeAuth(tokens *utils.TokenService, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, appErr := resolveUser(c, tokens, users); appErr == nil {
			c.Set(CurrentUserKey, user)
		}
		c.Next()
	}
}

// RequireRoles allows only the listed roles through. It must run after
// Protect.
func RequireRoles(roles ...string) gin.HandlerFunc {
	// both outcomes here are operational, so no logger is needed
	nop := zerolog.Nop()
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWithError(c, nop, apperror.Unauthorized("you are not logged in, please log in to get access"))
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, nop, apperror.Forbidden())
	}
}

// CurrentUser returns the authenticated user set by Protect or MaybeAuth.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	val, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*model.User)
	return user, ok
}

func resolveUser(c *gin.Context, tokens *utils.TokenService, users UserLoader) (*model.User, *apperror.Error) {
	tokenString := extractToken(c)
	if tokenString == "" {
		return nil, apperror.Unauthorized("you are not logged in, please log in to get access")
	}

	claims, err := tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperror.Unauthorized("your token has expired, please log in again")
		}
		return nil, apperror.Unauthorized("invalid token, please log in again")
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token, please log in again")
	}

	user, err := users.FindByID(c.Request.Context(), userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.Unauthorized("the user belonging to this token no longer exists")
	}
	if tokens.IsStaleRelativeTo(claims.IssuedAt.Time, user.PasswordChangedAt) {
		return nil, apperror.Unauthorized("user recently changed password, please log in again")
	}
	return user, nil
}

// extractToken prefers the Authorization header over the jwt cookie.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}

	cookie, err := c.Cookie("jwt")
	if err != nil {
		return ""
	}
	return cookie
}

// abortWithError mirrors the boundary responder: operational errors surface
// their message, everything else is logged in full and reported generically.
func abortWithError(c *gin.Context, log zerolog.Logger, appErr *apperror.Error) {
	if !appErr.Operational {
		log.Error().
			Err(appErr).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("unexpected error")
		c.AbortWithStatusJSON(appErr.Status, gin.H{
			"status":  "error",
			"code":    appErr.Code,
			"message": "something went wrong",
		})
		return
	}

	status := "fail"
	if appErr.Status >= http.StatusInternalServerError {
		status = "error"
	}
	c.AbortWithStatusJSON(appErr.Status, gin.H{
		"status":  status,
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
