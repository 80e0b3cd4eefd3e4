package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// streamPlan sends a "progress" server-sent event per snapshot and a final "done" event
// carrying the finished job.
func (h *HTTPHandler) streamPlan(c *gin.Context) {
	id := c.Param("id")
	updates, unsubscribe, err := h.Jobs.Subscribe(id)
	if err != nil {
		logAndReturnError(c, err.Error(), statusFor(err))
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debugf("Client %s stopped following plan %s", c.ClientIP(), id)
			return
		case p, ok := <-updates:
			if !ok {
				if job, err := h.Jobs.Get(id); err == nil {
					c.SSEvent("done", renderPlan(job, job.Progress))
					c.Writer.Flush()
				}
				return
			}
			job, err := h.Jobs.Get(id)
			if err != nil {
				return
			}
			c.SSEvent("progress", renderPlan(job, p))
			c.Writer.Flush()
		}
	}
}
