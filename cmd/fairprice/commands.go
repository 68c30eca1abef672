package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/importer"
)

var publishCmd = &cobra.Command{
	Use:   "publish-scheduled",
	Short: "Publish scheduled reviews whose time has come",
	Long: `Publishes every scheduled review with scheduledPublishAt at or before now,
prints the outcome as JSON and exits. Suitable for cron.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		report, err := d.reviews.PublishDue(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSON(cmd, report); err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d scheduled review(s) failed to publish", len(report.Failed))
		}
		return nil
	},
}

var overwrite bool

var importCmd = &cobra.Command{
	Use:   "import <url|path>...",
	Short: "Import exported review documents",
	Long: `Imports review JSON from http(s) URLs, JSON files or directories of JSON files.
Older document shapes (reviewContent, newline separated pros/cons, missing
status or slug) are converted to the current format. Reviews whose slug
already exists are skipped unless --overwrite is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		imp := importer.New(d.store, importer.WithOverwrite(overwrite))
		report, err := imp.Import(cmd.Context(), args...)
		if perr := printJSON(cmd, report); perr != nil {
			return perr
		}
		return err
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace reviews that already exist")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

