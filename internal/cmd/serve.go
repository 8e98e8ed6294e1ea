package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/config"
	"github.com/yuzeguitarist/text2qr/internal/crypto"
	"github.com/yuzeguitarist/text2qr/internal/netutil"
	"github.com/yuzeguitarist/text2qr/internal/web"
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"web"},
		Short:   "Run the web form (foreground)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				if err := cfg.SetListen(listen); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("debug") {
				d, _ := cmd.Flags().GetBool("debug")
				cfg.Debug = config.Truthy(d)
			}
			if err := applyTLSFlags(cmd, cfg); err != nil {
				return err
			}

			log := newLogger(cfg)
			httpSrv, fingerprint, err := buildServer(cfg, log)
			if err != nil {
				return err
			}
			if !netutil.TCPAddrAvailable(httpSrv.Addr) {
				return fmt.Errorf("cannot listen on %s: address in use or not permitted", httpSrv.Addr)
			}

			out := cmd.OutOrStdout()
			scheme := "http"
			if httpSrv.TLSConfig != nil {
				scheme = "https"
			}
			for _, u := range netutil.ListenURLs(scheme, httpSrv.Addr) {
				fmt.Fprintln(out, "Listening:", app.Color(out, u, app.Green))
			}
			if fingerprint != "" {
				fmt.Fprintln(out, "Certificate SHA-256:", fingerprint)
			}
			if cfg.IsDebug() {
				fmt.Fprintln(out, app.Color(out, "debug mode on", app.Yellow))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, httpSrv, cfg.ShutdownTimeout, log)
		},
	}
	c.Flags().String("listen", "", "listen address host:port (default from config: 0.0.0.0:5000)")
	c.Flags().Bool("debug", false, "verbose logging and detailed error pages (overrides IS_DEBUG)")
	c.Flags().String("tls-cert", "", "serve HTTPS with this PEM certificate (needs --tls-key)")
	c.Flags().String("tls-key", "", "PEM private key for --tls-cert")
	c.Flags().Bool("self-signed", false, "serve HTTPS with a generated self-signed certificate")
	return c
}

func applyTLSFlags(cmd *cobra.Command, cfg *config.Config) error {
	if !cmd.Flags().Changed("tls-cert") && !cmd.Flags().Changed("tls-key") && !cmd.Flags().Changed("self-signed") {
		return nil
	}
	cfg.TLS.CertFile, _ = cmd.Flags().GetString("tls-cert")
	cfg.TLS.KeyFile, _ = cmd.Flags().GetString("tls-key")
	self, _ := cmd.Flags().GetBool("self-signed")
	cfg.TLS.SelfSigned = config.Truthy(self)
	return cfg.Validate()
}

// buildServer wires the web handler into an http.Server. The second result
// is the TLS certificate fingerprint, empty for plain HTTP.
func buildServer(cfg *config.Config, log *slog.Logger) (*http.Server, string, error) {
	enc, err := cfg.Encoder()
	if err != nil {
		return nil, "", err
	}
	csrfKey, err := app.Key32(cfg.CSRFKey, app.KeyCSRF)
	if err != nil {
		return nil, "", err
	}
	sessionKey, err := app.Key32(cfg.SessionKey, app.KeySession)
	if err != nil {
		return nil, "", err
	}
	var tlsConf *tls.Config
	var fingerprint string
	if cfg.TLSEnabled() {
		tlsConf, fingerprint, err = crypto.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, crypto.Hosts(cfg.Host))
		if err != nil {
			return nil, "", fmt.Errorf("tls: %w", err)
		}
	}
	if cfg.CSRFKey == "" || cfg.SessionKey == "" {
		log.Warn("csrf_key or session_key not set; using per-process random keys")
	}
	srv, err := web.NewServer(web.Options{
		Encoder:      enc,
		Logger:       log,
		CSRFKey:      csrfKey,
		SessionKey:   sessionKey,
		CookieSecure: bool(cfg.CookieSecure) || tlsConf != nil,
		Debug:        cfg.IsDebug(),
	})
	if err != nil {
		return nil, "", err
	}
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		TLSConfig:         tlsConf,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}, fingerprint, nil
}

// serve runs srv until ctx is done, then shuts it down within timeout.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()
	log.Info("server started", "addr", srv.Addr, "tls", srv.TLSConfig != nil)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", timeout)
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}
