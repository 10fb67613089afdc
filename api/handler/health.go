package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mirror/models"
)

// Health returns a handler for GET /health. The body is not wrapped in the
// API envelope.
func Health(st Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Uptime:    st.Uptime().Round(time.Second).Seconds(),
			Version:   Version,
			Browser:   st.BrowserName(),
		})
	}
}
