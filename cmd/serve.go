package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/api"
	"github.com/erikbos/moontv-server/muxnormalizer"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP server",
	Long: `Starts the HTTP server with login, data migration and health endpoints. Usage:

	moontv-server serve --port 3000
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 3000, "port to listen on")
	serveCmd.Flags().String("tls-cert", "", "TLS certificate file")
	serveCmd.Flags().String("tls-key", "", "TLS key file")
}

func serve(ctx context.Context) error {
	signingKey, err := cfg.SigningKey()
	if err != nil {
		return err
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Owner.Username == "" || cfg.Owner.Password == "" {
		logger.Warn("owner credentials not configured, data migration is unavailable")
	}
	if err := db.Ping(ctx); err != nil {
		// requests keep retrying the backend
		logger.Warn("storage backend not reachable at startup", zap.Error(err))
	}

	r := mux.NewRouter()
	a := api.New(&api.Options{
		Db:            db,
		Backup:        newBackup(db),
		JWTSecret:     signingKey,
		TokenTTL:      cfg.TokenTTL,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        logger,
	})
	a.RegisterHandlers(r)

	normalizer, err := muxnormalizer.New(r)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Listen.Port),
		Handler:           HttpLog(logger, normalizer.Middleware(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := cfg.Listen.TLSCert != "" && cfg.Listen.TLSKey != ""
	if useTLS {
		kpr, err := newKeypairReloader(ctx, cfg.Listen.TLSCert, cfg.Listen.TLSKey, logger)
		if err != nil {
			return fmt.Errorf("error loading keypair: %w", err)
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS13,
			GetCertificate: kpr.GetCertificateFunc(),
		}
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", useTLS),
			zap.String("storage", string(db.Kind())),
			zap.String("version", Version))
		if useTLS {
			errc <- srv.ListenAndServeTLS("", "")
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
