// server/internal/api/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mediradar-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidPayload, http.StatusBadRequest},
	{service.ErrMissingToken, http.StatusBadRequest},
	{service.ErrOncePerDay, http.StatusBadRequest},
	{service.ErrUnsupportedFile, http.StatusBadRequest},
	{service.ErrPharmacyNotApproved, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{service.ErrUploadsDisabled, http.StatusServiceUnavailable},
}

// abortWithError writes the {"error": code} body for err. Errors outside the service
// taxonomy are logged and reported as server_error.
func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	var hoursErr *service.HoursError
	if errors.As(err, &hoursErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_hours", "days": hoursErr.Days})
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.AbortWithStatusJSON(e.status, gin.H{"error": e.err.Error()})
			return
		}
	}
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
}

func abortInvalidPayload(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidPayload.Error()})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || (err != nil && strings.Contains(err.Error(), "request body too large"))
}

// bindJSON decodes the body into obj and aborts on failure: payload_too_large when
// BodyLimit cut the body off, invalid_payload otherwise.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	switch {
	case err == nil:
		return true
	case tooLarge(err):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrPayloadTooLarge.Error()})
	default:
		abortInvalidPayload(c)
	}
	return false
}
