package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/assettrack/internal/config"
	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/store"
)

func newImportCmd() *cobra.Command {
	var (
		orgID  int64
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import assets from a CSV or .xlsx file",
		Long: "Validates every row of the file against the organization's reference data and stores the valid rows.\n" +
			"With --dry-run nothing is stored. The result is printed as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgID < 1 {
				return fmt.Errorf("--org must be a positive organization id")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var (
				db  config.DatabaseConfig
				imp config.ImportConfig
			)
			if err := config.LoadInto(&db); err != nil {
				return err
			}
			if err := config.LoadInto(&imp); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pool, err := store.Connect(ctx, db)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := core.NewService(store.New(pool).Repositories(), core.Options{
				MaxFileSize: imp.MaxFileSize,
				MaxRows:     imp.MaxRows,
			})
			return runImport(ctx, cmd, svc, orgID, core.ImportFile{Name: filepath.Base(args[0]), Data: data}, dryRun)
		},
	}
	cmd.Flags().Int64Var(&orgID, "org", 0, "organization id to import into (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, store nothing")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// importer is the slice of the service the import command drives.
type importer interface {
	ImportAssets(ctx context.Context, orgID int64, f core.ImportFile) (*core.ImportResult, error)
	PreviewImport(ctx context.Context, orgID int64, f core.ImportFile) (*core.ImportResult, error)
}

// runImport prints the result and fails when no row could be imported.
func runImport(ctx context.Context, cmd *cobra.Command, svc importer, orgID int64, f core.ImportFile, dryRun bool) error {
	run := svc.ImportAssets
	if dryRun {
		run = svc.PreviewImport
	}
	res, err := run(ctx, orgID, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.Imported == 0 && res.Failed > 0 {
		return fmt.Errorf("no rows imported: %d row(s) failed", res.Failed)
	}
	return nil
}
