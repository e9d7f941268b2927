package gateway

import (
	"errors"
	"net/http"

	"github.com/example/marketplace/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP status codes in
// one place so handlers stay uniform.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
