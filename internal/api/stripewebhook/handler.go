package stripewebhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 65536

type Handler struct {
	ingestor *Ingestor
}

func NewHandler(ingestor *Ingestor) *Handler {
	return &Handler{ingestor: ingestor}
}

// POST /api/webhooks/stripe
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading request body"})
		return
	}

	// Processing is not tied to the caller: a dropped connection must not
	// abort a half-applied event.
	ctx := context.WithoutCancel(c.Request.Context())
	out := h.ingestor.Handle(ctx, payload, c.GetHeader("Stripe-Signature"))

	if out.Status != http.StatusOK {
		c.JSON(out.Status, gin.H{"error": out.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
