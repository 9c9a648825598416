package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook/internal/apperror"
	"tourbook/internal/model"
)

func errorContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	return c, w
}

func TestRespondError(t *testing.T) {
	t.Run("operational error surfaces its message", func(t *testing.T) {
		c, w := errorContext(t)
		respondError(c, zerolog.Nop(), apperror.NotFound("trip", "abc"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "fail", body["status"])
		assert.Equal(t, "no trip found with id abc", body["message"])
	})

	t.Run("operational 5xx uses error status", func(t *testing.T) {
		c, w := errorContext(t)
		respondError(c, zerolog.Nop(), apperror.DeliveryFailed(errors.New("smtp down")))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "error", body["status"])
		assert.Contains(t, body["message"], "sending the email")
	})

	t.Run("unexpected error is reported generically", func(t *testing.T) {
		c, w := errorContext(t)
		respondError(c, zerolog.Nop(), errors.New("connection reset by mongod"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "something went wrong", body["message"])
		assert.NotContains(t, w.Body.String(), "mongod", "internals must not leak")
	})

	t.Run("validation details are listed", func(t *testing.T) {
		c, w := errorContext(t)
		respondError(c, zerolog.Nop(), apperror.Validation("Name is required", "Price must be greater than 0"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			Details []string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Details, 2)
	})
}

func TestBindError_ReportsEveryViolation(t *testing.T) {
	// an empty signup violates every required constraint at once
	err := binding.Validator.ValidateStruct(&model.SignupRequest{})
	require.Error(t, err)

	appErr := bindError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Len(t, appErr.Details, 4)
	assert.Contains(t, appErr.Details, "Name is required")
	assert.Contains(t, appErr.Details, "Email is required")
}

func TestBindError_NonValidatorFailure(t *testing.T) {
	appErr := bindError(errors.New("unexpected EOF"))
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "invalid request body", appErr.Message)
}
