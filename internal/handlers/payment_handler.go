package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskeval/internal/payments"
	"taskeval/internal/services"
)

// WebhookVerifier is the inbound half of the payment provider.
type WebhookVerifier interface {
	VerifyAndParseWebhook(payload []byte, header string) (*payments.Event, error)
}

type PaymentHandler struct {
	service  services.PaymentService
	verifier WebhookVerifier
}

func NewPaymentHandler(service services.PaymentService, verifier WebhookVerifier) *PaymentHandler {
	return &PaymentHandler{service: service, verifier: verifier}
}

// @Summary      Request report unlock
// @Description  Creates a checkout session for an evaluated, unpaid task
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.CheckoutResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /payments/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		TaskID string `json:"task_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[payment][checkout][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[payment][checkout] user=%d task=%s", userID, req.TaskID)

	resp, err := h.service.RequestUnlock(c.Request.Context(), userID, req.TaskID)
	if err != nil {
		respondError(c, "[payment][checkout]", err)
		return
	}
	log.Printf("[payment][checkout][ok] user=%d task=%s session=%s", userID, req.TaskID, resp.SessionID)
	c.JSON(http.StatusOK, resp)
}

// GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "[payment][list]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// Webhook consumes provider events. Signature verification is the only
// authentication here; once it passes, the provider always gets a 200 so
// it does not retry and duplicate side effects.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[webhook][err] read body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := h.verifier.VerifyAndParseWebhook(body, c.GetHeader(payments.SignatureHeader))
	if err != nil {
		log.Printf("[webhook][reject] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	log.Printf("[webhook] event id=%s type=%s", event.ID, event.Type)

	h.service.HandleWebhook(c.Request.Context(), event)

	c.JSON(http.StatusOK, gin.H{"received": true})
}
