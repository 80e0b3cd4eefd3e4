package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimitWindow is the window RateLimit counts plan submissions over.
const rateLimitWindow = time.Minute

// cors allows the JSON API to be called from other origins. An empty list allows any origin.
func cors(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// rateLimitIP caps plan submissions per client IP. A limit of zero disables it.
func rateLimitIP(limiter Limiter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := "plans:" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, rateLimitWindow)
		if err != nil {
			// Limiter store errors let the request through.
			log.Warnf("Rate limit check failed for %s: %v", c.ClientIP(), err)
			c.Next()
			return
		}
		if !allowed {
			logAndReturnError(c, fmt.Sprintf("Too many requests. Limit: %d plans per %v", limit, rateLimitWindow),
				http.StatusTooManyRequests, fmt.Sprintf("Rate limit exceeded for %s", c.ClientIP()))
			return
		}
		c.Next()
	}
}
