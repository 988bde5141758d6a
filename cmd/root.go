// Package cmd implements the moontv-server command line.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erikbos/moontv-server/backup"
	"github.com/erikbos/moontv-server/config"
	"github.com/erikbos/moontv-server/database"
)

// Version is set at build time and written into backups.
var Version = "dev"

var (
	configFile string
	cfg        *config.Config
	logger     = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "moontv-server",
	Short:        "MoonTV storage and data migration server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configFile, cmd.Flags()); err != nil {
			return err
		}
		if logger, err = newLogger(cfg.LogLevel); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("storage-type", "", "storage backend, overrides the config file")
}

// newLogger sets up a zap logger that logs to the console in a human readable format.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	prodConfig := zap.NewProductionConfig()
	prodConfig.Level = lvl
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return prodConfig.Build()
}

// openStorage returns a storage manager bound to the configured backend.
func openStorage() (*database.Manager, error) {
	kind, err := cfg.Storage.Kind()
	if err != nil {
		return nil, err
	}
	db := database.New(&database.Options{
		Kind:   kind,
		Logger: logger,
	})
	connect, err := database.NewConnector(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	if connect != nil {
		db.Bind(connect)
	}
	return db, nil
}

func newBackup(db *database.Manager) *backup.Service {
	return backup.New(&backup.Options{
		Db:            db,
		OwnerUsername: cfg.Owner.Username,
		OwnerPassword: cfg.Owner.Password,
		ServerVersion: Version,
		Logger:        logger,
	})
}

// ownerPrincipal is the caller of offline commands.
func ownerPrincipal() (*backup.Principal, error) {
	if cfg.Owner.Username == "" {
		return nil, errors.New("owner username not configured, set USERNAME or owner.username")
	}
	return &backup.Principal{Username: cfg.Owner.Username}, nil
}
