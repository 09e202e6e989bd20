// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/contact-relay/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider handles reachability checks and the actual sending of
// composed messages to the target service (SMTP server, SES, Graph, stdout).
type Provider interface {
	// Verify checks that the backend is reachable and accepts the configured
	// credentials. No message is sent.
	Verify(ctx context.Context) error

	// Send delivers an email message through this provider exactly once and
	// returns the identifier assigned to it.
	Send(ctx context.Context, msg *email.Message) (string, error)

	// Name returns the human-readable name of this provider.
	Name() string
}
