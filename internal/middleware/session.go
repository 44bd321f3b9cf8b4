package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const (
	// HeaderDeviceID carries the browser's persistent device identifier.
	HeaderDeviceID = "X-Device-ID"
	// HeaderMonitorKey carries the proctor's API key.
	HeaderMonitorKey = "X-Monitor-Key"

	// ContextKeyDeviceID is the Gin context key for the calling device.
	ContextKeyDeviceID = "device_id"

	maxDeviceIDLength = 128
)

// RequireDeviceID rejects requests without a usable X-Device-ID header.
// Each device holds at most one exam session.
func RequireDeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		dev := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		if dev == "" || len(dev) > maxDeviceIDLength {
			response.AbortFail(c, http.StatusBadRequest, response.ErrDeviceIDRequired)
			return
		}
		c.Set(ContextKeyDeviceID, dev)
		c.Next()
	}
}

// GetDeviceID returns the device set by RequireDeviceID or RequireSessionJWT.
func GetDeviceID(c *gin.Context) string {
	return c.GetString(ContextKeyDeviceID)
}

// RequireMonitorKey guards the proctor endpoints. An empty key disables them.
// EventSource cannot send headers, so ?key= is accepted too.
func RequireMonitorKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderMonitorKey)
		if got == "" {
			got = c.Query("key")
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrMonitorKey)
			return
		}
		c.Next()
	}
}
