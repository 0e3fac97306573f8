// Package paystack wraps Paystack API calls using the REST API directly (no
// SDK dependency). Only transaction verification is used.
package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

var (
	// ErrGatewayUnreachable covers transport failures and timeouts.
	ErrGatewayUnreachable = errors.New("paystack: gateway unreachable")
	// ErrGatewayRejected covers non-2xx responses from the verification endpoint.
	ErrGatewayRejected = errors.New("paystack: verification rejected")
	// ErrMalformedResponse covers responses that cannot be decoded.
	ErrMalformedResponse = errors.New("paystack: malformed response")
)

const (
	defaultBaseURL = "https://api.paystack.co"
	verifyTimeout  = 10 * time.Second
)

// Client is a Paystack API client scoped to transaction verification.
type Client struct {
	secretKey  string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Paystack API client.
func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: verifyTimeout},
		baseURL:    defaultBaseURL,
	}
}

// verifyResponse mirrors the fields of Paystack's transaction verification
// payload that the pipeline consumes.
type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Metadata struct {
			PlanID         string `json:"plan_id"`
			WhatsAppNumber string `json:"whatsapp_number"`
		} `json:"metadata"`
	} `json:"data"`
}

// Verify asks Paystack for the authoritative status of a transaction
// reference. The call is read-only; no retry is attempted, a timeout
// surfaces as ErrGatewayUnreachable.
func (c *Client) Verify(ctx context.Context, reference string) (*models.VerificationResult, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrMalformedResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &models.VerificationResult{
		Succeeded:       parsed.Status && parsed.Data.Status == "success",
		PaidAmount:      parsed.Data.Amount,
		PlanID:          parsed.Data.Metadata.PlanID,
		CustomerContact: parsed.Data.Metadata.WhatsAppNumber,
	}, nil
}
