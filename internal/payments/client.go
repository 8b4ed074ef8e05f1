// Package payments wraps the checkout provider: session creation on the
// way out, signature-verified webhook events on the way in.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Session is the provider's checkout session as we consume it.
type Session struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
}

type Client struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	appBaseURL    string
	currency      string
	unlockPrice   int64
	httpClient    *http.Client
}

func NewClient(apiKey, webhookSecret, baseURL, appBaseURL, currency string, unlockPrice int64) *Client {
	return &Client{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		appBaseURL:    strings.TrimRight(appBaseURL, "/"),
		currency:      currency,
		unlockPrice:   unlockPrice,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UnlockPrice is the fixed price in minor currency units.
func (c *Client) UnlockPrice() int64 { return c.unlockPrice }

// CreateSession creates a one-item checkout session for unlocking the
// task's full report. Task and owner ids travel as session metadata so the
// webhook can correlate the event without any request context.
func (c *Client) CreateSession(ctx context.Context, taskID string, userID int64) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][product_data][name]", "Full AI Evaluation Report")
	form.Set("line_items[0][price_data][product_data][description]", "Unlock complete analysis with detailed feedback")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(c.unlockPrice, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", fmt.Sprintf("%s/tasks/%s?payment=success", c.appBaseURL, taskID))
	form.Set("cancel_url", fmt.Sprintf("%s/tasks/%s?payment=cancelled", c.appBaseURL, taskID))
	form.Set("metadata[task_id]", taskID)
	form.Set("metadata[user_id]", strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[payments][session][err] status=%d body=%s", resp.StatusCode, body)
		return nil, fmt.Errorf("checkout provider status %d", resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("checkout provider returned incomplete session")
	}
	return &session, nil
}
