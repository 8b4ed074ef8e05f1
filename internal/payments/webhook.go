package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskeval/internal/apperrors"
)

// Provider event types we act on. Everything else is acknowledged
// without processing.
const (
	EventCheckoutCompleted  = "checkout.session.completed"
	EventCheckoutExpired    = "checkout.session.expired"
	EventAsyncPaymentFailed = "checkout.session.async_payment_failed"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// signatureTolerance bounds how old a signed timestamp may be. Replays of
// recent events are handled idempotently downstream; stale signatures are
// rejected outright.
const signatureTolerance = 5 * time.Minute

// EventSession is the session object embedded in a webhook event.
type EventSession struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// Event is a verified webhook event.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventSession `json:"object"`
	} `json:"data"`
}

// VerifyAndParseWebhook checks the signature header against the configured
// secret and decodes the event. This is the only authentication webhook
// calls get; nothing in the payload is trusted before this passes.
func (c *Client) VerifyAndParseWebhook(payload []byte, header string) (*Event, error) {
	if err := c.verifySignature(payload, header, time.Now()); err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperrors.Validation("malformed webhook payload")
	}
	return &event, nil
}

func (c *Client) verifySignature(payload []byte, header string, now time.Time) error {
	if strings.TrimSpace(header) == "" {
		return apperrors.Authentication("missing webhook signature")
	}

	var timestamp int64
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return apperrors.Authentication("invalid webhook signature")
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return apperrors.Authentication("invalid webhook signature")
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return apperrors.Authentication("webhook signature timestamp out of tolerance")
	}

	expected := signPayload(c.webhookSecret, timestamp, payload)
	for _, candidate := range candidates {
		got, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return apperrors.Authentication("invalid webhook signature")
}

// signPayload computes HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(secret string, timestamp int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}
