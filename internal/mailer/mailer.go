// Package mailer turns a validated contact submission into an email and
// delivers it through the configured transport.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/email"
	"github.com/shineum/contact-relay/internal/provider"
	"github.com/shineum/contact-relay/internal/provider/graph"
	"github.com/shineum/contact-relay/internal/provider/ses"
	"github.com/shineum/contact-relay/internal/provider/smtp"
	"github.com/shineum/contact-relay/internal/provider/stdout"
	"github.com/shineum/contact-relay/internal/transport"
)

// Sender name and subject prefix of every contact notification.
const (
	SenderName    = "Portfolio Contact Form"
	SubjectPrefix = "Portfolio Contact: "
)

// Factory builds a provider for a transport configuration.
type Factory func(ctx context.Context, tc transport.Config) (provider.Provider, error)

// Mailer sends contact notifications. Transport settings are resolved on
// every send, so missing settings surface as delivery errors rather than at
// startup.
type Mailer struct {
	mail    config.MailConfig
	factory Factory
	now     func() time.Time
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithFactory replaces the provider factory, for tests.
func WithFactory(f Factory) Option {
	return func(m *Mailer) { m.factory = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

// New creates a Mailer for the given mail settings.
func New(mail config.MailConfig, opts ...Option) *Mailer {
	m := &Mailer{
		mail:    mail,
		factory: NewProvider,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SendContactEmail verifies the transport, then composes and sends one
// notification for sub. It returns the id assigned by the transport.
func (m *Mailer) SendContactEmail(ctx context.Context, sub contact.Submission) (string, error) {
	tc := transport.Select(m.mail)

	if err := tc.Validate(); err != nil {
		slog.Error("mail transport misconfigured", "transport", tc.Kind, "error", err)
		return "", &DeliveryError{Kind: KindTransportUnavailable, Provider: string(tc.Kind), Err: err}
	}

	p, err := m.factory(ctx, tc)
	if err != nil {
		slog.Error("failed to create mail provider", "transport", tc.Kind, "error", err)
		return "", &DeliveryError{Kind: KindTransportUnavailable, Provider: string(tc.Kind), Err: err}
	}

	if err := p.Verify(ctx); err != nil {
		slog.Error("mail transport verification failed", "provider", p.Name(), "error", err)
		return "", &DeliveryError{Kind: KindTransportUnavailable, Provider: p.Name(), Err: err}
	}

	msg, err := Compose(sub, tc.Sender(), m.now())
	if err != nil {
		slog.Error("failed to compose contact email", "error", err)
		return "", &DeliveryError{Kind: KindSendFailed, Provider: p.Name(), Err: err}
	}

	id, err := p.Send(ctx, msg)
	if err != nil {
		slog.Error("email sending failed", "provider", p.Name(), "error", err)
		return "", &DeliveryError{Kind: KindSendFailed, Provider: p.Name(), Err: err}
	}

	slog.Info("email sent successfully", "provider", p.Name(), "message_id", id)
	return id, nil
}

// Compose builds the notification for a submission. The message goes from
// and to the sender account; replies go to the submitter.
func Compose(sub contact.Submission, sender string, now time.Time) (*email.Message, error) {
	details := email.ContactDetails{
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Message:   sub.Message,
		Timestamp: now,
	}

	html, err := email.ContactHTML(details)
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML body: %w", err)
	}

	return &email.Message{
		From:      email.Address{Name: SenderName, Address: sender},
		To:        []email.Address{{Address: sender}},
		ReplyTo:   []email.Address{{Address: sub.Email}},
		Subject:   SubjectPrefix + sub.Subject,
		TextBody:  email.ContactText(details),
		HTMLBody:  html,
		Date:      now,
		MessageID: email.NewMessageID(sender),
	}, nil
}

// NewProvider is the default Factory. It performs no network I/O except for
// loading AWS configuration.
func NewProvider(ctx context.Context, tc transport.Config) (provider.Provider, error) {
	switch tc.Kind {
	case transport.KindSES:
		p, err := ses.New(ctx, ses.ProviderConfig{
			Region:          tc.SES.Region,
			AccessKeyID:     tc.SES.AccessKeyID,
			SecretAccessKey: tc.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case transport.KindGraph:
		return graph.New(graph.ProviderConfig{
			TenantID:     tc.Graph.TenantID,
			ClientID:     tc.Graph.ClientID,
			ClientSecret: tc.Graph.ClientSecret,
			Sender:       tc.Sender(),
			Timeout:      tc.Timeout,
		}), nil
	case transport.KindStdout:
		return stdout.New(), nil
	}

	if !tc.UsesSMTP() {
		return nil, fmt.Errorf("unsupported transport kind %q", tc.Kind)
	}
	ep := tc.Endpoint()
	return smtp.New(smtp.ProviderConfig{
		Host:     ep.Host,
		Port:     ep.Port,
		Secure:   ep.Secure,
		Username: tc.Credentials.User,
		Password: tc.Credentials.Pass,
		Timeout:  tc.Timeout,
	}), nil
}
