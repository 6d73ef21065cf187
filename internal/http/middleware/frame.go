package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// FrameHeaders lets the host clients embed the app in an iframe.
func FrameHeaders(ancestors []string) gin.HandlerFunc {
	csp := "frame-ancestors " + strings.Join(append([]string{"'self'"}, ancestors...), " ")
	xfo := ""
	if len(ancestors) > 0 {
		xfo = "ALLOW-FROM " + ancestors[0]
	}
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", csp)
		if xfo != "" {
			c.Header("X-Frame-Options", xfo)
		}
		c.Next()
	}
}

// CORS echoes allowed origins. An empty allowedOrigin allows any origin,
// which suits development only.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "" || origin == allowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Telegram-Init-Data, X-Session-Token, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
