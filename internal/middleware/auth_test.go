package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/model"
	"tourbook/internal/utils"
)

type fakeUserLoader struct {
	user *model.User
	err  error
}

func (f *fakeUserLoader) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, nil
}

func protectedRouter(tokens *utils.TokenService, loader UserLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secret", Protect(tokens, loader, zerolog.Nop()), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"status": "success", "user": user.Email})
	})
	r.GET("/admin", Protect(tokens, loader, zerolog.Nop()), RequireRoles(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return r
}

func TestProtect(t *testing.T) {
	tokens := utils.NewTokenService("test-secret", time.Hour)
	user := &model.User{ID: primitive.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser, Active: true}
	loader := &fakeUserLoader{user: user}
	router := protectedRouter(tokens, loader)

	token, err := tokens.Issue(user.ID.Hex())
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ada@example.com")
	})

	t.Run("jwt cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "you are not logged in")
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Token "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredTokens := utils.NewTokenService("test-secret", -time.Hour)
		expired, err := expiredTokens.Issue(user.ID.Hex())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "expired")
	})

	t.Run("token for deleted user", func(t *testing.T) {
		ghost, err := tokens.Issue(primitive.NewObjectID().Hex())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Bearer "+ghost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "no longer exists")
	})

	t.Run("loader failure is logged and reported generically", func(t *testing.T) {
		var logged bytes.Buffer
		log := zerolog.New(&logged)

		gin.SetMode(gin.TestMode)
		r := gin.New()
		loader := &fakeUserLoader{err: errors.New("connection(localhost:27017) reset by peer")}
		r.GET("/secret", Protect(tokens, loader, log), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		})

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "something went wrong")
		assert.NotContains(t, w.Body.String(), "27017", "internals never reach the client")
		assert.Contains(t, logged.String(), "27017", "the full error lands in the log")
	})

	t.Run("token predating password change", func(t *testing.T) {
		changed := time.Now().Add(time.Hour)
		stale := &model.User{ID: user.ID, Email: user.Email, Role: user.Role, PasswordChangedAt: &changed}
		router := protectedRouter(tokens, &fakeUserLoader{user: stale})

		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "recently changed password")
	})
}

func TestRequireRoles(t *testing.T) {
	tokens := utils.NewTokenService("test-secret", time.Hour)

	t.Run("role allowed", func(t *testing.T) {
		admin := &model.User{ID: primitive.NewObjectID(), Email: "root@example.com", Role: model.RoleAdmin}
		router := protectedRouter(tokens, &fakeUserLoader{user: admin})
		token, err := tokens.Issue(admin.ID.Hex())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("role denied", func(t *testing.T) {
		user := &model.User{ID: primitive.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser}
		router := protectedRouter(tokens, &fakeUserLoader{user: user})
		token, err := tokens.Issue(user.ID.Hex())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "permission")
	})
}

func TestMaybeAuth(t *testing.T) {
	tokens := utils.NewTokenService("test-secret", time.Hour)
	user := &model.User{ID: primitive.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", MaybeAuth(tokens, &fakeUserLoader{user: user}), func(c *gin.Context) {
		if u, ok := CurrentUser(c); ok {
			c.JSON(http.StatusOK, gin.H{"user": u.Email})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": nil})
	})

	t.Run("anonymous continues", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "null")
	})

	t.Run("credential attaches user", func(t *testing.T) {
		token, err := tokens.Issue(user.ID.Hex())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ada@example.com")
	})
}
