// Command ldapd runs the directory server: the LDAPv3 listener plus its
// MFA HTTP side-channel, backed by Postgres.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/MultifactorLab/MultiDirectory/internal/config"
	"github.com/MultifactorLab/MultiDirectory/internal/handler"
	"github.com/MultifactorLab/MultiDirectory/internal/httpapi"
	"github.com/MultifactorLab/MultiDirectory/internal/logging"
	"github.com/MultifactorLab/MultiDirectory/internal/mfa"
	"github.com/MultifactorLab/MultiDirectory/internal/password"
	"github.com/MultifactorLab/MultiDirectory/internal/session"
	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
	"github.com/MultifactorLab/MultiDirectory/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:   "ldapd",
		Short: "MultiDirectory LDAPv3 server",
		RunE:  runServe,
	}
	root.Flags().Bool("pretty-logs", false, "use a human-readable console log writer instead of JSON")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ldapd: %w", err)
	}

	pretty, _ := cmd.Flags().GetBool("pretty-logs")
	logger := logging.New(logging.Options{Level: "info", Pretty: pretty})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresURI)
	if err != nil {
		return fmt.Errorf("ldapd: connect postgres: %w", err)
	}
	defer conn.Close()

	store := postgres.Open(conn)

	h := handler.New(store, logger)
	h.AllowAnonymousBind = false
	h.VendorName = cfg.VendorName
	h.VendorVersion = cfg.VendorVersion

	settings, err := store.Settings(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("loading catalogue settings, MFA stays disabled")
		settings = map[string]string{}
	}
	if mfaKey, secret := settings[model.SettingMFAKey], settings[model.SettingMFASecret]; mfaKey != "" && secret != "" && cfg.MFAAPIURI != "" {
		h.MFA = mfa.NewService(cfg.MFAAPIURI, mfaKey, secret, int(cfg.MFATimeout.Seconds()))
		h.MFACallback = fmt.Sprintf("http://%s/multifactor/create", cfg.HTTPAddr())
	}

	ldapServer := session.NewServer(h, session.WorkerCount, logger)
	if cfg.UseCoreTLS {
		cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
		if err != nil {
			return fmt.Errorf("ldapd: load TLS keypair: %w", err)
		}
		ldapServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	var httpServer *http.Server
	if h.MFA != nil {
		authenticate := func(ctx context.Context, username, plaintext string) (int64, error) {
			user, err := store.GetUserByPrincipal(ctx, username)
			if err != nil {
				return 0, err
			}
			if err := password.Verify(plaintext, user.PasswordHash); err != nil {
				return 0, err
			}
			return user.DirectoryID, nil
		}
		api := httpapi.New(h.MFA, authenticate, h.MFACallback, logger)
		httpServer = &http.Server{Addr: cfg.HTTPAddr(), Handler: api.Handler()}
		go func() {
			logger.Info().Str("addr", httpServer.Addr).Msg("mfa http side-channel listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("mfa http side-channel stopped")
			}
		}()
	}

	logger.Info().Str("addr", cfg.Addr()).Bool("tls", cfg.UseCoreTLS).Msg("ldapd listening")
	serveErr := make(chan error, 1)
	go func() {
		if cfg.UseCoreTLS {
			serveErr <- ldapServer.ListenAndServeTLS(ctx, cfg.Addr())
		} else {
			serveErr <- ldapServer.ListenAndServe(ctx, cfg.Addr())
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		ldapServer.Shutdown()
		if httpServer != nil {
			httpServer.Shutdown(context.Background())
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
