// Package middleware contains any custom middleware used in the app
package middleware

import (
	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const requestIDLength = 12

// NewRequestIDMiddleware returns a new middleware function that generates a request ID for
// each incoming request, sets it as requestID and echoes it in the X-Request-ID header
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := gonanoid.Must(requestIDLength)

		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
