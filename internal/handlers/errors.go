package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
)

// bindJSON decodes the request body into out. On failure it writes the 400 response and
// returns false.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return false
	}
	return true
}

// handleError maps service errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	var (
		validationErr *errors.ValidationError
		rejected      *errors.PromoRejectedError
		failed        *errors.SubmissionFailedError
		upstream      *errors.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"field":   validationErr.Field,
			"details": validationErr.Details,
		})
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rejected.Error()})
	case errors.As(err, &failed):
		logError(c, "Order submission failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": errors.SubmissionFailedMessage})
	case errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrSubmissionInProgress),
		errors.Is(err, errors.ErrPromoCheckInProgress),
		errors.Is(err, errors.ErrIdempotencyConflict),
		errors.Is(err, errors.ErrAlreadySubmitted),
		errors.Is(err, errors.ErrPaymentLinkUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, errors.ErrEmptyPromoCode), errors.Is(err, errors.ErrNoVariationSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		logError(c, "Upstream request failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	default:
		logError(c, "Unhandled error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func logError(c *gin.Context, msg string, err error) {
	fields := logging.Fields{"error": err.Error(), "path": c.FullPath()}
	if c.Request != nil {
		fields["request_id"] = middleware.RequestIDFromContext(c.Request.Context())
	}
	logging.NewLoggerV2("handlers").Error(msg, fields)
}
