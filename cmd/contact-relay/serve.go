package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/mailer"
	"github.com/shineum/contact-relay/internal/origin"
	"github.com/shineum/contact-relay/internal/ratelimit"
	"github.com/shineum/contact-relay/internal/server"
	relaytls "github.com/shineum/contact-relay/internal/tls"
	"github.com/shineum/contact-relay/internal/transport"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			setupLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")
	cmd.Flags().IntVar(&port, "port", 0, "override the listen port")
	return cmd
}

// runServer wires the pipeline from configuration and serves until ctx is
// cancelled.
func runServer(ctx context.Context, cfg *config.Config) error {
	tlsConfig, tlsMode, err := serverTLS(cfg)
	if err != nil {
		slog.Error("failed to setup TLS", "error", err)
		return err
	}

	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	go limiter.Run(ctx)

	tc := transport.Select(cfg.Mail)
	if err := tc.Validate(); err != nil {
		// Not fatal: every send re-checks and reports a delivery error.
		slog.Warn("mail transport is not fully configured", "transport", tc.Kind, "error", err)
	}

	srv := server.New(server.Config{
		Addr:        cfg.Addr(),
		BodyLimit:   cfg.Server.BodyLimit,
		ProxyHeader: cfg.Server.ProxyHeader,
		TLSConfig:   tlsConfig,
		Guard:       origin.NewGuard(cfg.AllowedOrigins()),
		Limiter:     limiter,
		Mailer:      mailer.New(cfg.Mail),
	})

	slog.Info("starting contact-relay",
		"version", version,
		"addr", cfg.Addr(),
		"transport", tc.Kind,
		"tls_mode", tlsMode,
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("contact-relay stopped")
	return nil
}

// serverTLS returns the HTTPS configuration, or nil for plain HTTP.
func serverTLS(cfg *config.Config) (*tls.Config, string, error) {
	if !cfg.TLSEnabled() {
		return nil, "off", nil
	}

	certFile, keyFile := cfg.TLS.CertFile, cfg.TLS.KeyFile
	mode := "file"
	if certFile == "" || keyFile == "" {
		certFile, keyFile = "", ""
		mode = "self-signed"
	}

	tlsConfig, err := relaytls.LoadOrGenerateTLS(certFile, keyFile)
	if err != nil {
		return nil, "", err
	}
	return tlsConfig, mode, nil
}
