package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// dateField is the only date in request bodies.
const dateField = "birthday"

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

// abortWithError maps an error to its HTTP status and writes the error body. Unexpected
// errors are logged and answered with a generic message.
func abortWithError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		loggerFrom(c).ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Error:   "internal_error",
			Message: "internal server error",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(appErr, apperror.ErrValidation):
		status, kind = http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(appErr, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(appErr, apperror.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
		c.Header("WWW-Authenticate", "Bearer")
	case errors.Is(appErr, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Error:   kind,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}

// abortWithBadRequest answers a body that could not be decoded.
func abortWithBadRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:   "bad_request",
		Message: "invalid JSON",
	})
}

// bindJSON decodes the request body into dst and answers a failure with abortWithBindError.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithBindError(c, err)
		return false
	}
	return true
}

// abortWithBindError answers a body that is not JSON with 400. Well-formed JSON with a value
// of the wrong type or an unparsable date is a validation failure of that field and answered
// with 422.
func abortWithBindError(c *gin.Context, err error) {
	var typeErr *json.UnmarshalTypeError
	var dateErr *model.InvalidDateError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		abortWithError(c, apperror.Invalid(field, fmt.Sprintf("must be of type %s", typeErr.Type)))
	case errors.As(err, &dateErr):
		abortWithError(c, apperror.Invalid(dateField, dateErr.Error()))
	default:
		abortWithBadRequest(c)
	}
}
