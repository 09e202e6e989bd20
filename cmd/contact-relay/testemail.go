package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/mailer"
)

// errMissingSettings is returned when test-email finds required settings unset.
var errMissingSettings = errors.New("missing required mail settings")

// testSubmission is the canned submission sent by test-email.
var testSubmission = contact.Submission{
	Name:    "Test User",
	Email:   "test@example.com",
	Subject: "Test Email",
	Message: "This is a test email from the portfolio backend.",
}

// contactSender is satisfied by *mailer.Mailer.
type contactSender interface {
	SendContactEmail(ctx context.Context, sub contact.Submission) (string, error)
}

func newMailer(mail config.MailConfig) contactSender {
	return mailer.New(mail)
}

func newTestEmailCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test contact email with the configured transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			setupLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

			return runTestEmail(cmd.Context(), cmd.OutOrStdout(), cfg, newMailer(cfg.Mail))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")
	return cmd
}

// runTestEmail checks the settings every transport needs, then sends the
// canned submission.
func runTestEmail(ctx context.Context, out io.Writer, cfg *config.Config, sender contactSender) error {
	fmt.Fprintln(out, "Testing email functionality...")

	if missing := missingMailSettings(cfg.Mail); len(missing) > 0 {
		fmt.Fprintf(out, "Missing environment variables: %s\n", strings.Join(missing, ", "))
		return fmt.Errorf("%w: %s", errMissingSettings, strings.Join(missing, ", "))
	}

	fmt.Fprintln(out, "Environment variables loaded")
	fmt.Fprintf(out, "Email service: %s\n", cfg.Mail.Service)
	fmt.Fprintf(out, "Email user: %s\n", cfg.Mail.User)

	id, err := sender.SendContactEmail(ctx, testSubmission)
	if err != nil {
		fmt.Fprintf(out, "Test email failed: %v\n", err)
		return err
	}

	fmt.Fprintf(out, "Test email sent successfully (id %s)\n", id)
	return nil
}

// missingMailSettings lists unset variables among EMAIL_SERVICE, EMAIL_USER
// and EMAIL_PASS. The stdout sink needs none of them beyond the service.
func missingMailSettings(mail config.MailConfig) []string {
	if mail.Service == "stdout" {
		return nil
	}

	var missing []string
	if mail.Service == "" {
		missing = append(missing, "EMAIL_SERVICE")
	}
	if mail.User == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if mail.Pass == "" && mail.Service != "ses" && mail.Service != "graph" {
		missing = append(missing, "EMAIL_PASS")
	}
	return missing
}
