package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

// HandlePaymentWebhook accepts the gateway's form-encoded server callback.
// Replays and outcomes that cannot move the payment are still acknowledged
// with 200 so the gateway stops retrying.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	if err := c.Request.ParseForm(); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ack, err := s.webhookSvc.Ingest(c.Request.Context(), c.Request.PostForm)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ack)
}
