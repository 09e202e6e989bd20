// Package transport turns named mail configuration values into an immutable
// description of how outbound mail is delivered.
package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/shineum/contact-relay/internal/config"
)

// Kind identifies a mail delivery mechanism.
type Kind string

const (
	KindGmail   Kind = "gmail"
	KindOutlook Kind = "outlook"
	KindSMTP    Kind = "smtp"
	KindSES     Kind = "ses"
	KindGraph   Kind = "graph"
	KindStdout  Kind = "stdout"
)

const defaultSMTPPort = 587

// stdoutSender is used as the sender identity when the stdout sink runs
// without a configured account.
const stdoutSender = "contact-relay@localhost"

var (
	ErrMissingCredentials = errors.New("mail credentials are not configured")
	ErrMissingHost        = errors.New("SMTP host is not configured")
	ErrMissingSESRegion   = errors.New("SES region is not configured")
	ErrMissingGraphApp    = errors.New("Graph tenant, client id and client secret are required")
)

// Endpoint is an SMTP server address and its TLS mode.
type Endpoint struct {
	Host string
	Port int
	// Secure selects implicit TLS; otherwise STARTTLS is used when offered.
	Secure bool
}

// wellKnown maps provider names to their submission endpoints.
var wellKnown = map[Kind]Endpoint{
	KindGmail:   {Host: "smtp.gmail.com", Port: 465, Secure: true},
	KindOutlook: {Host: "smtp-mail.outlook.com", Port: 587, Secure: false},
}

// Credentials are the account used to authenticate and to send.
type Credentials struct {
	User string
	Pass string
}

// SESOptions configure the AWS SES transport.
type SESOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// GraphOptions configure the Microsoft Graph transport.
type GraphOptions struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Config describes a mail transport. It is built by Select and never mutated.
type Config struct {
	Kind        Kind
	Credentials Credentials

	SMTPHost   string
	SMTPPort   int
	SMTPSecure bool
	Timeout    time.Duration

	SES   SESOptions
	Graph GraphOptions
}

// Select builds a transport Config from mail configuration values. It
// performs no I/O and never fails; missing values are reported later by
// Validate.
func Select(mail config.MailConfig) Config {
	tc := Config{
		Credentials: Credentials{User: mail.User, Pass: mail.Pass},
		Timeout:     mail.SMTP.Timeout,
	}

	switch Kind(mail.Service) {
	case KindGmail, KindOutlook:
		tc.Kind = Kind(mail.Service)
	case KindSES:
		tc.Kind = KindSES
		tc.SES = SESOptions{
			Region:          mail.SES.Region,
			AccessKeyID:     mail.SES.AccessKeyID,
			SecretAccessKey: mail.SES.SecretAccessKey,
		}
	case KindGraph:
		tc.Kind = KindGraph
		tc.Graph = GraphOptions{
			TenantID:     mail.Graph.TenantID,
			ClientID:     mail.Graph.ClientID,
			ClientSecret: mail.Graph.ClientSecret,
		}
	case KindStdout:
		tc.Kind = KindStdout
	default:
		tc.Kind = KindSMTP
		tc.SMTPHost = mail.SMTP.Host
		tc.SMTPPort = mail.SMTP.Port
		if tc.SMTPPort <= 0 {
			tc.SMTPPort = defaultSMTPPort
		}
		tc.SMTPSecure = mail.SMTP.Secure
	}

	return tc
}

// UsesSMTP reports whether delivery goes through an SMTP submission server.
func (c Config) UsesSMTP() bool {
	switch c.Kind {
	case KindGmail, KindOutlook, KindSMTP:
		return true
	}
	return false
}

// Endpoint returns the SMTP server for SMTP-based kinds. Well-known providers
// resolve to their published submission endpoints.
func (c Config) Endpoint() Endpoint {
	if ep, ok := wellKnown[c.Kind]; ok {
		return ep
	}
	return Endpoint{Host: c.SMTPHost, Port: c.SMTPPort, Secure: c.SMTPSecure}
}

// Sender returns the account address mail is sent from and delivered to.
func (c Config) Sender() string {
	if c.Kind == KindStdout && c.Credentials.User == "" {
		return stdoutSender
	}
	return c.Credentials.User
}

// Validate reports settings that must be present before mail can be sent.
func (c Config) Validate() error {
	switch c.Kind {
	case KindStdout:
		return nil
	case KindSES:
		if c.SES.Region == "" {
			return ErrMissingSESRegion
		}
		if c.Credentials.User == "" {
			return fmt.Errorf("%w: EMAIL_USER is required as the SES sender", ErrMissingCredentials)
		}
		return nil
	case KindGraph:
		if c.Graph.TenantID == "" || c.Graph.ClientID == "" || c.Graph.ClientSecret == "" {
			return ErrMissingGraphApp
		}
		if c.Credentials.User == "" {
			return fmt.Errorf("%w: EMAIL_USER is required as the Graph sender", ErrMissingCredentials)
		}
		return nil
	}

	if c.Credentials.User == "" || c.Credentials.Pass == "" {
		return fmt.Errorf("%w: EMAIL_USER and EMAIL_PASS are required", ErrMissingCredentials)
	}
	if c.Endpoint().Host == "" {
		return ErrMissingHost
	}
	return nil
}
