// Package verification contains the handlers of the /api/verifications routes
package verification

import (
	"errors"
	"io"
	"net/http"

	"bitwise74/phone-verify/internal"
	"bitwise74/phone-verify/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type startBody struct {
	Phone string `json:"phone"`
}

func Start(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString("requestID")

	var data startBody
	// An empty body is treated like a missing phone
	if err := c.ShouldBindJSON(&data); err != nil && !errors.Is(err, io.EOF) {
		// Bodies without Content-Length are only cut off while decoding
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"requestID": requestID,
			})
			return
		}

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	id, err := d.Issuer.Start(c.Request.Context(), data.Phone)
	if err != nil {
		status, msg := classify(err)

		if status >= http.StatusInternalServerError {
			zap.L().Error("Failed to start verification", zap.Error(err), zap.String("requestID", requestID))
		} else {
			zap.L().Debug("Verification rejected", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(status, gin.H{
			"error":     msg,
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingPhone):
		return http.StatusBadRequest, "Phone required"
	case errors.Is(err, service.ErrInvalidPhone):
		return http.StatusBadRequest, "Phone invalid"
	case errors.Is(err, service.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "Rate limit"
	case errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway, "Failed to deliver verification code"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
