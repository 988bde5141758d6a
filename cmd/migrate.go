package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/erikbos/moontv-server/backup"
)

var (
	exportPassword string
	exportOut      string
	importPassword string
	clearYes       bool
)

// exportCmd writes an encrypted backup of all data.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all data into an encrypted backup file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := ownerPrincipal()
		if err != nil {
			return err
		}
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(cmd.Context()); err != nil {
			return err
		}

		artifact, err := newBackup(db).Export(cmd.Context(), caller, exportPassword)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = artifact.Filename
		} else if info, err := os.Stat(out); err == nil && info.IsDir() {
			out = filepath.Join(out, artifact.Filename)
		}
		if err := os.WriteFile(out, artifact.Data, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", out)
		return nil
	},
}

// importCmd restores an encrypted backup file.
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import an encrypted backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := ownerPrincipal()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(cmd.Context()); err != nil {
			return err
		}

		report, err := newBackup(db).Import(cmd.Context(), caller, data, importPassword)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "imported %d users, %d entities written\n", report.Users, report.Written)
		for _, f := range report.Failures {
			fmt.Fprintf(out, "failed: user=%q kind=%s key=%q: %s\n", f.Username, f.Kind, f.Key, f.Error)
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d entities could not be imported", len(report.Failures))
		}
		return nil
	},
}

// clearCmd wipes all stored data.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to delete all data without --yes")
		}
		caller, err := ownerPrincipal()
		if err != nil {
			return err
		}
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(cmd.Context()); err != nil {
			return err
		}

		if err := newBackup(db).ClearAllData(cmd.Context(), caller, backup.ClearConfirmation); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all data deleted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, clearCmd)

	exportCmd.Flags().StringVar(&exportPassword, "password", "", "password to encrypt the backup with")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file or directory")
	_ = exportCmd.MarkFlagRequired("password")

	importCmd.Flags().StringVar(&importPassword, "password", "", "password the backup was encrypted with")
	_ = importCmd.MarkFlagRequired("password")

	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting all data")
}
