package handler

import (
	"time"

	"github.com/gin-gonic/gin"
)

// logRequest logs every request once it has been served.
func logRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s -- %s -- %s -- %d -- %s", c.ClientIP(), c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func logAndReturnError(c *gin.Context, httpResponseStr string, code int, consoleStr ...string) {
	// consoleStr is optional.
	if len(consoleStr) > 0 {
		log.Errorln(consoleStr[0])
	} else {
		log.Errorln(httpResponseStr)
	}
	c.AbortWithStatusJSON(code, Response{Error: &httpResponseStr, Message: httpResponseStr})
}
