package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/orders"
	"github.com/safar/storefront/internal/store"
)

func abortMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// writeError maps domain errors to status codes. Unknown errors become a
// generic 500 so internals never reach the client.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *checkout.ValidationError
	var serr *checkout.StockExhaustedError
	var failed *checkout.OrderCreationFailed

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": verr.Fields})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cart is empty"})
	case errors.As(err, &serr):
		body := gin.H{
			"message":    "Insufficient stock",
			"product_id": serr.ProductID,
			"requested":  serr.Requested,
			"available":  serr.Available,
		}
		if serr.VariantID != nil {
			body["variant_id"] = *serr.VariantID
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"message": "Checkout already in progress"})
	case errors.As(err, &failed):
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create order"})
	case errors.Is(err, database.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
	case errors.Is(err, orders.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, database.ErrOptimisticLockFailed):
		c.JSON(http.StatusConflict, gin.H{"message": "Order was modified concurrently, retry"})
	case errors.Is(err, store.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cursor"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
