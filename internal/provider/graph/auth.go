package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	graphScope = "https://graph.microsoft.com/.default"

	// earlyRefresh shortens every token's lifetime so a send never starts
	// with a token about to lapse.
	earlyRefresh = 5 * time.Minute
)

// errEmptyToken is returned when the token endpoint answers 200 without a token.
var errEmptyToken = errors.New("token response missing access_token")

// bearer is one acquired access token.
type bearer struct {
	value   string
	expires time.Time
}

func (b bearer) usable(now time.Time) bool {
	return b.value != "" && now.Before(b.expires)
}

// tokenCache acquires app-only Graph tokens with the client-credentials grant
// and reuses them until shortly before they expire.
type tokenCache struct {
	endpoint string
	form     url.Values
	client   *http.Client
	now      func() time.Time

	mu      sync.Mutex
	current bearer
}

func newTokenCache(tokenURL, clientID, clientSecret string, client *http.Client) *tokenCache {
	return &tokenCache{
		endpoint: tokenURL,
		form: url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {clientID},
			"client_secret": {clientSecret},
			"scope":         {graphScope},
		},
		client: client,
		now:    time.Now,
	}
}

// Token returns the cached token, fetching a new one when it is missing or
// close to expiry. Concurrent callers share a single fetch.
func (tc *tokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.current.usable(tc.now()) {
		return tc.current.value, nil
	}

	b, err := tc.fetch(ctx)
	if err != nil {
		return "", err
	}
	tc.current = b
	return b.value, nil
}

// Invalidate forgets the cached token. Graph answered 401 with it.
func (tc *tokenCache) Invalidate() {
	tc.mu.Lock()
	tc.current = bearer{}
	tc.mu.Unlock()
}

func (tc *tokenCache) fetch(ctx context.Context) (bearer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.endpoint, strings.NewReader(tc.form.Encode()))
	if err != nil {
		return bearer{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.client.Do(req)
	if err != nil {
		return bearer{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return bearer{}, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return bearer{}, tokenError(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return bearer{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return bearer{}, errEmptyToken
	}

	lifetime := time.Duration(tr.ExpiresIn)*time.Second - earlyRefresh
	return bearer{value: tr.AccessToken, expires: tc.now().Add(lifetime)}, nil
}

// tokenError reports a rejected token request, preferring the OAuth error
// code over the raw body.
func tokenError(status int, body []byte) error {
	var oe oauthError
	if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
		return fmt.Errorf("token endpoint returned %d: %s: %s", status, oe.Error, oe.Description)
	}
	return fmt.Errorf("token endpoint returned %d: %s", status, strings.TrimSpace(string(body)))
}
