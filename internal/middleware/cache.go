package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore marks per-user responses as uncacheable by browsers and proxies.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
