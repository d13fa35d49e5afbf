// Package sms provides a minimal client for an HTTP SMS gateway.
//
// The gateway's transport protocol is intentionally opaque to the engine: a
// JSON POST either succeeds or it doesn't.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client sends text messages through a configured gateway endpoint.
type Client struct {
	gatewayURL string
	apiKey     string
	sender     string
	client     *http.Client
}

func NewClient(gatewayURL, apiKey, sender string) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		sender:     sender,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts one message to the gateway and returns an error on any
// non-200 response.
func (c *Client) Send(ctx context.Context, to, text string) error {
	reqBody := sendRequest{
		From: c.sender,
		To:   to,
		Text: text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway error: %s", resp.Status)
	}

	return nil
}
