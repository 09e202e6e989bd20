package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shineum/contact-relay/internal/email"
)

func contactMessage() *email.Message {
	return &email.Message{
		From:      email.Address{Name: "Portfolio Contact Form", Address: "me@example.com"},
		To:        []email.Address{{Address: "me@example.com"}},
		ReplyTo:   []email.Address{{Address: "ada@example.com"}},
		Subject:   "Portfolio Contact: Hi",
		TextBody:  "Plain text",
		HTMLBody:  "<p>HTML content</p>",
		MessageID: "abc@example.com",
	}
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "test-token", ExpiresIn: 3600})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(graphServer, tokenServer *httptest.Server) *Provider {
	return newWithOverrides(
		ProviderConfig{Sender: "me@example.com", TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)
}

func TestBuildSendMailRequest(t *testing.T) {
	t.Parallel()

	req := buildSendMailRequest(contactMessage())

	if req.Message.Subject != "Portfolio Contact: Hi" {
		t.Errorf("Subject: got %q, want %q", req.Message.Subject, "Portfolio Contact: Hi")
	}
	if req.Message.Body.ContentType != "html" {
		t.Errorf("Body.ContentType: got %q, want %q", req.Message.Body.ContentType, "html")
	}
	if req.Message.Body.Content != "<p>HTML content</p>" {
		t.Errorf("Body.Content: got %q, want %q", req.Message.Body.Content, "<p>HTML content</p>")
	}
	if len(req.Message.ToRecipients) != 1 || req.Message.ToRecipients[0].EmailAddress.Address != "me@example.com" {
		t.Errorf("ToRecipients: got %+v", req.Message.ToRecipients)
	}
	if len(req.Message.ReplyTo) != 1 || req.Message.ReplyTo[0].EmailAddress.Address != "ada@example.com" {
		t.Errorf("ReplyTo: got %+v", req.Message.ReplyTo)
	}
	if req.Message.From == nil || req.Message.From.EmailAddress.Name != "Portfolio Contact Form" {
		t.Errorf("From: got %+v", req.Message.From)
	}
	if req.Message.InternetMessageID != "<abc@example.com>" {
		t.Errorf("InternetMessageID: got %q, want %q", req.Message.InternetMessageID, "<abc@example.com>")
	}
}

func TestBuildSendMailRequest_TextOnly(t *testing.T) {
	t.Parallel()

	msg := contactMessage()
	msg.HTMLBody = ""
	msg.ReplyTo = nil
	msg.MessageID = ""

	req := buildSendMailRequest(msg)

	if req.Message.Body.ContentType != "text" {
		t.Errorf("Body.ContentType: got %q, want %q", req.Message.Body.ContentType, "text")
	}
	if req.Message.Body.Content != "Plain text" {
		t.Errorf("Body.Content: got %q, want %q", req.Message.Body.Content, "Plain text")
	}
	if req.Message.ReplyTo != nil {
		t.Errorf("ReplyTo: got %+v, want nil", req.Message.ReplyTo)
	}
	if req.Message.InternetMessageID != "" {
		t.Errorf("InternetMessageID: got %q, want empty", req.Message.InternetMessageID)
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	p := New(ProviderConfig{TenantID: "t", ClientID: "c", ClientSecret: "s", Sender: "me@example.com"})
	if got := p.Name(); got != "msgraph" {
		t.Errorf("Name(): got %q, want %q", got, "msgraph")
	}
}

func TestNew_URLs(t *testing.T) {
	t.Parallel()
	p := New(ProviderConfig{TenantID: "tenant", ClientID: "c", ClientSecret: "s", Sender: "me@example.com"})

	if want := "https://graph.microsoft.com/v1.0/users/me@example.com/sendMail"; p.graphURL != want {
		t.Errorf("graphURL: got %q, want %q", p.graphURL, want)
	}
	if want := "https://login.microsoftonline.com/tenant/oauth2/v2.0/token"; p.token.endpoint != want {
		t.Errorf("token endpoint: got %q, want %q", p.token.endpoint, want)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t)
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Verify must not call sendMail")
	}))
	defer graphServer.Close()

	if err := newTestProvider(graphServer, tokenServer).Verify(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerify_TokenRejected(t *testing.T) {
	t.Parallel()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer tokenServer.Close()
	graphServer := httptest.NewServer(http.NotFoundHandler())
	defer graphServer.Close()

	if err := newTestProvider(graphServer, tokenServer).Verify(context.Background()); err == nil {
		t.Fatal("expected error for rejected client secret, got nil")
	}
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t)
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization header: got %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type header: got %q, want %q", r.Header.Get("Content-Type"), "application/json")
		}

		var body sendMailRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if body.Message.Subject != "Portfolio Contact: Hi" {
			t.Errorf("Subject in body: got %q, want %q", body.Message.Subject, "Portfolio Contact: Hi")
		}
		if len(body.Message.ReplyTo) != 1 {
			t.Errorf("ReplyTo in body: got %d entries, want 1", len(body.Message.ReplyTo))
		}

		w.Header().Set("request-id", "graph-req-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	id, err := newTestProvider(graphServer, tokenServer).Send(context.Background(), contactMessage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "graph-req-1" {
		t.Errorf("id: got %q, want %q", id, "graph-req-1")
	}
}

func TestSend_FallsBackToMessageID(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t)
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	id, err := newTestProvider(graphServer, tokenServer).Send(context.Background(), contactMessage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc@example.com" {
		t.Errorf("id: got %q, want %q", id, "abc@example.com")
	}
}

func TestSend_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		code      string
		permanent bool
	}{
		{"bad request", http.StatusBadRequest, "ErrorInvalidRecipients", true},
		{"forbidden", http.StatusForbidden, "ErrorAccessDenied", true},
		{"unauthorized", http.StatusUnauthorized, "InvalidAuthenticationToken", false},
		{"throttled", http.StatusTooManyRequests, "ApplicationThrottled", false},
		{"unavailable", http.StatusServiceUnavailable, "ServiceUnavailable", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokenServer := newTokenServer(t)
			var calls atomic.Int32
			graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(graphErrorResponse{
					Error: graphError{Code: tt.code, Message: "rejected"},
				})
			}))
			defer graphServer.Close()

			_, err := newTestProvider(graphServer, tokenServer).Send(context.Background(), contactMessage())
			if err == nil {
				t.Fatalf("expected error for HTTP %d, got nil", tt.status)
			}

			var sendErr *sendError
			if !errors.As(err, &sendErr) {
				t.Fatalf("expected *sendError, got %T", err)
			}
			if sendErr.code != tt.code {
				t.Errorf("code: got %q, want %q", sendErr.code, tt.code)
			}
			if sendErr.Permanent() != tt.permanent {
				t.Errorf("Permanent(): got %v, want %v", sendErr.Permanent(), tt.permanent)
			}
			if calls.Load() != 1 {
				t.Errorf("sendMail calls: got %d, want 1", calls.Load())
			}
		})
	}
}

func TestSend_UnauthorizedInvalidatesToken(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "token", ExpiresIn: 3600})
	}))
	defer tokenServer.Close()

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)
	p.Send(context.Background(), contactMessage())
	p.Send(context.Background(), contactMessage())

	if tokenCalls.Load() != 2 {
		t.Errorf("token calls: got %d, want 2", tokenCalls.Load())
	}
}

func TestSendError_NonJSONBody(t *testing.T) {
	t.Parallel()

	err := newSendError(http.StatusBadGateway, []byte("upstream failure"))
	if err.message != "upstream failure" {
		t.Errorf("message: got %q, want %q", err.message, "upstream failure")
	}
	if want := "Graph API error (HTTP 502): upstream failure"; err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}
