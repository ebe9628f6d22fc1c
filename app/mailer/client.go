// Package mailer is the HTTP client for the mailer service.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ReceiptEmail is the body of POST /api/mailer/subscription.
type ReceiptEmail struct {
	To         string `json:"to"`
	ReceiptURL string `json:"receiptUrl"`
	Username   string `json:"username"`
	Plan       string `json:"plan"`
}

// SendSubscriptionReceipt asks the mailer service to send a receipt email.
func (c *Client) SendSubscriptionReceipt(ctx context.Context, email ReceiptEmail) error {
	raw, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/mailer/subscription", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send receipt to %s: %w", email.To, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("send receipt to %s: mailer http %d: %s", email.To, res.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
