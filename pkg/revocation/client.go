// Package revocation sends leaked secrets found by secret detection to the
// token revocation service.
package revocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/doodlesbykumbi/scanstore/pkg/logging"
)

const revokePath = "/v1/revoke_tokens"

// Token is one leaked secret.
type Token struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Location string `json:"location"`
}

// Client posts tokens to the revocation API, retrying transient failures.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

type Option func(*retryablehttp.Client)

// WithRetry overrides the retry count and the backoff bounds.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = logging.Component(logger, "revocation")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    rc,
	}
}

// Revoke sends tokens for revocation. An empty list is not sent.
func (c *Client) Revoke(ctx context.Context, tokens []Token) error {
	if len(tokens) == 0 {
		return nil
	}
	if c.baseURL == "" {
		return errors.New("token revocation URL is not configured")
	}

	body, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+revokePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("token revocation returned %s", resp.Status)
	}
	return nil
}
