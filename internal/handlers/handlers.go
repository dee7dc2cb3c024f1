package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phuket-estate/internal/database"
)

// respondStoreError maps the store error taxonomy to HTTP status codes
func respondStoreError(c *gin.Context, err error) {
	var verr *database.ValidationError
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, database.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
