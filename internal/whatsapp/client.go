// Package whatsapp delivers voucher codes over the WhatsApp Cloud API using
// the REST API directly (no SDK dependency). Delivery is best effort: the
// voucher is already provisioned by the time a message is sent, so failures
// are logged and never propagated to the caller's outcome.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v18.0"
	sendTimeout    = 15 * time.Second
)

// Client sends text messages through the WhatsApp Cloud API.
type Client struct {
	token         string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
}

// NewClient creates a WhatsApp Cloud API client.
func NewClient(token, phoneNumberID string) *Client {
	return &Client{
		token:         token,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: sendTimeout},
		baseURL:       defaultBaseURL,
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// Send delivers the voucher code to the given WhatsApp number.
func (c *Client) Send(ctx context.Context, recipient, code string) error {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
	}
	msg.Text.Body = fmt.Sprintf("Welcome! Your Wi-Fi voucher is: *%s*\n\nUse this code as both username and password to log in. Enjoy your internet access!", code)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal message: %w", err)
	}

	endpoint := c.baseURL + "/" + c.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp: send message: status %d: %s", resp.StatusCode, body)
	}

	return nil
}
