package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"familia/internal/config"
	"familia/internal/service"
)

func newBackupCmd(loadConfig func() *config.Config) *cobra.Command {
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the database as JSON",
	}
	backup.AddCommand(newExportCmd(loadConfig), newImportCmd(loadConfig))
	return backup
}

func newExportCmd(loadConfig func() *config.Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export database to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Generate default filename if not provided
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			db, err := openDatabase(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			defer f.Close()

			slog.Info("Exporting database", "output", output)
			if err := service.NewBackupService(db).Export(cmd.Context(), f); err != nil {
				return err
			}
			if err := f.Sync(); err != nil {
				return err
			}

			if info, err := f.Stat(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %s (%.2f MB)\n", output, float64(info.Size())/1024/1024)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd(loadConfig func() *config.Config) *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import database from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open backup file: %w", err)
			}
			defer f.Close()

			if clearData && !yes {
				fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			db, err := openDatabase(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			slog.Info("Importing database", "input", input, "clear", clearData)
			if err := service.NewBackupService(db).Import(cmd.Context(), f, clearData); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Import complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clearData, "clear", false, "delete existing data before importing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
