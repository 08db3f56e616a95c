package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarlin/storefront-api/internal/service"
)

// respondError is the single place service failures turn into HTTP
// statuses, keyed on sentinel errors instead of message text.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
