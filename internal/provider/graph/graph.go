// Package graph implements a Provider that sends emails via the Microsoft
// Graph API using OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/contact-relay/internal/email"
)

// ProviderConfig holds the configuration for creating a Provider.
type ProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Sender is the mailbox that sends the message.
	Sender string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
}

// Provider sends emails via the Graph sendMail endpoint.
type Provider struct {
	graphURL   string
	httpClient *http.Client
	token      *tokenCache
}

// New creates a new Provider with the given configuration.
func New(cfg ProviderConfig) *Provider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		url.PathEscape(cfg.TenantID),
	)
	graphURL := fmt.Sprintf(
		"https://graph.microsoft.com/v1.0/users/%s/sendMail",
		url.PathEscape(cfg.Sender),
	)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return newWithOverrides(cfg, graphURL, tokenURL, &http.Client{Timeout: timeout})
}

// newWithOverrides creates a Provider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg ProviderConfig, graphURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		graphURL:   graphURL,
		httpClient: client,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "msgraph"
}

// Verify acquires an access token, which proves the app registration and
// secret are valid.
func (p *Provider) Verify(ctx context.Context) error {
	if _, err := p.token.Token(ctx); err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	return nil
}

// Send posts the message once. The returned id is the Graph request id, or
// the message's own id when the response carries none.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	token, err := p.token.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.graphURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		if id := resp.Header.Get("request-id"); id != "" {
			return id, nil
		}
		return msg.MessageID, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Let the next request start from a fresh token.
		p.token.Invalidate()
	}

	body, _ := io.ReadAll(resp.Body)
	sendErr := newSendError(resp.StatusCode, body)
	slog.Warn("Graph API rejected message",
		"status", sendErr.statusCode,
		"code", sendErr.code,
		"permanent", sendErr.Permanent(),
	)
	return "", sendErr
}

// sendError is a non-success response from the sendMail endpoint.
type sendError struct {
	statusCode int
	code       string
	message    string
}

func newSendError(statusCode int, body []byte) *sendError {
	var resp graphErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		return &sendError{statusCode: statusCode, code: resp.Error.Code, message: resp.Error.Message}
	}
	return &sendError{statusCode: statusCode, message: string(body)}
}

func (e *sendError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// Permanent reports whether resending the same message cannot succeed.
func (e *sendError) Permanent() bool {
	switch {
	case e.statusCode == http.StatusUnauthorized,
		e.statusCode == http.StatusTooManyRequests,
		e.statusCode >= 500:
		return false
	}
	return true
}
