package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskeval/internal/models"
	"taskeval/internal/payments"
)

type fakePaymentService struct {
	events []*payments.Event
}

func (s *fakePaymentService) RequestUnlock(_ context.Context, userID int64, taskID string) (*models.CheckoutResponse, error) {
	return nil, nil
}

func (s *fakePaymentService) ListByUser(_ context.Context, userID int64) ([]models.Payment, error) {
	return nil, nil
}

func (s *fakePaymentService) HandleWebhook(_ context.Context, event *payments.Event) {
	s.events = append(s.events, event)
}

func stripeSignature(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookRouter(svc *fakePaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := payments.NewClient("sk_test_key", "whsec_test", "https://api.example.com", "https://app.example.com", "usd", 999)
	h := NewPaymentHandler(svc, verifier)

	r := gin.New()
	r.POST("/webhooks/stripe", h.Webhook)
	return r
}

const webhookBody = `{
  "id": "evt_1",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_test_1", "metadata": {"task_id": "task-123", "user_id": "42"}}}
}`

func TestWebhookEndpointAccepted(t *testing.T) {
	svc := &fakePaymentService{}
	router := newWebhookRouter(svc)

	payload := []byte(webhookBody)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set(payments.SignatureHeader, stripeSignature("whsec_test", time.Now().Unix(), payload))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	require.Len(t, svc.events, 1)
	assert.Equal(t, payments.EventCheckoutCompleted, svc.events[0].Type)
	assert.Equal(t, "cs_test_1", svc.events[0].Data.Object.ID)
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	svc := &fakePaymentService{}
	router := newWebhookRouter(svc)

	payload := []byte(webhookBody)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong secret", stripeSignature("whsec_other", time.Now().Unix(), payload)},
		{"stale timestamp", stripeSignature("whsec_test", time.Now().Add(-10*time.Minute).Unix(), payload)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
			if tc.header != "" {
				req.Header.Set(payments.SignatureHeader, tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, svc.events) // unverified events never reach the service
}
