// Package smtp implements a Provider that relays messages through an SMTP
// submission server. It covers the well-known services and generic hosts.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/contact-relay/internal/email"
	smtptls "github.com/shineum/contact-relay/internal/tls"
)

// defaultTimeout bounds a whole SMTP session when no timeout is configured.
const defaultTimeout = 30 * time.Second

// ErrAuthUnsupported is returned when credentials are configured but the
// server does not advertise AUTH.
var ErrAuthUnsupported = errors.New("server does not support AUTH")

// ErrInsecureAuth is returned when credentials would be sent over a
// connection without TLS to a host other than loopback.
var ErrInsecureAuth = errors.New("refusing to authenticate without TLS")

// ProviderConfig holds the configuration for creating a Provider.
type ProviderConfig struct {
	Host string
	Port int

	// Secure selects implicit TLS on connect. Otherwise the connection is
	// upgraded with STARTTLS when the server offers it.
	Secure bool

	Username string
	Password string

	// LocalName is sent in EHLO. Defaults to "localhost".
	LocalName string

	// Timeout bounds dialing and the whole session.
	Timeout time.Duration

	// TLSConfig overrides the client TLS configuration.
	TLSConfig *tls.Config
}

// Provider delivers messages over SMTP with PLAIN authentication.
type Provider struct {
	cfg  ProviderConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New creates a new SMTP Provider with the given configuration.
func New(cfg ProviderConfig) *Provider {
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &Provider{cfg: cfg, dial: dialer.DialContext}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

// Verify opens a session, negotiates TLS and authenticates, then quits
// without sending anything.
func (p *Provider) Verify(ctx context.Context) error {
	c, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Quit(); err != nil {
		return fmt.Errorf("QUIT failed: %w", err)
	}
	return nil
}

// Send delivers the message in a single SMTP transaction. The returned id is
// the Message-ID carried by the message.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (string, error) {
	raw, err := email.Render(msg)
	if err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}

	c, err := p.connect(ctx)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := c.Mail(msg.From.Address, nil); err != nil {
		return "", fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, rcpt := range msg.Recipients() {
		if err := c.Rcpt(rcpt); err != nil {
			return "", fmt.Errorf("RCPT TO %s rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write message data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("message not accepted: %w", err)
	}

	// The message is accepted at this point; a failed QUIT is not a failed send.
	if err := c.Quit(); err != nil {
		slog.Debug("SMTP QUIT failed after delivery", "host", p.cfg.Host, "error", err)
	}

	return msg.MessageID, nil
}

// addr returns the host:port of the SMTP server.
func (p *Provider) addr() string {
	return net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
}

// tlsConfig returns the client TLS configuration for the server.
func (p *Provider) tlsConfig() *tls.Config {
	if p.cfg.TLSConfig != nil {
		cfg := p.cfg.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = p.cfg.Host
		}
		return cfg
	}
	return smtptls.ClientConfig(p.cfg.Host)
}

// connect dials the server and returns a greeted, secured and authenticated
// client. The caller must Close it.
func (p *Provider) connect(ctx context.Context) (*gosmtp.Client, error) {
	conn, err := p.dial(ctx, "tcp", p.addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", p.addr(), err)
	}

	deadline := time.Now().Add(p.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set connection deadline: %w", err)
	}

	if p.cfg.Secure {
		tlsConn := tls.Client(conn, p.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake with %s failed: %w", p.addr(), err)
		}
		conn = tlsConn
	}

	c, err := gosmtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp.NewClient: %w", err)
	}

	if err := c.Hello(p.cfg.LocalName); err != nil {
		c.Close()
		return nil, fmt.Errorf("EHLO rejected: %w", err)
	}

	secured := p.cfg.Secure
	if !secured {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(p.tlsConfig()); err != nil {
				c.Close()
				return nil, fmt.Errorf("STARTTLS failed: %w", err)
			}
			secured = true
		}
	}

	if p.cfg.Username != "" {
		if !secured && !isLoopback(p.cfg.Host) {
			c.Close()
			return nil, ErrInsecureAuth
		}
		if ok, _ := c.Extension("AUTH"); !ok {
			c.Close()
			return nil, ErrAuthUnsupported
		}
		if err := c.Auth(sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)); err != nil {
			c.Close()
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
	}

	return c, nil
}

// isLoopback reports whether host names the local machine.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
