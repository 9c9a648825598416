package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"tourbook/internal/apperror"
)

// respondData writes the success envelope around a single document.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"status": "success",
		"data":   gin.H{"data": data},
	})
}

// respondList writes the success envelope around a result set with its count.
// An empty set is a success with results 0.
func respondList(c *gin.Context, results int, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": results,
		"data":    gin.H{"data": data},
	})
}

// respondError is the single boundary responder. Operational errors surface
// their message; everything else is logged in full and reported generically.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(err)
	}

	if !appErr.Operational {
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("unexpected error")
		c.JSON(appErr.Status, gin.H{
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
	body := gin.H{
		"status":  status,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Status, body)
}

// bindError converts a gin binding failure into a validation error listing
// every violated constraint, not just the first.
func bindError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describeViolation(fe))
		}
		return apperror.Validation(details...)
	}
	return apperror.BadRequest("invalid request body")
}

func describeViolation(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be below %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
