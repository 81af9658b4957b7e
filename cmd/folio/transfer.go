package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/folio/content"
)

func newExportCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record to a JSON export file",
		Long: `Write projects, sections, images, videos and the site settings to a JSON
document. Credentials are never exported.

Examples:
  folio export                 # portfolio-export-YYYY-MM-DD.json
  folio export -o backup.json
  folio export -o -            # standard output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := g.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			ds, err := c.Export(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(ds, "", "  ")
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			raw = append(raw, '\n')

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(raw)
				return err
			}
			if output == "" {
				output = content.ExportFilename(time.Now())
			}
			if err := os.WriteFile(output, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Exported %d records to %s", ds.Len(), output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for standard output")
	return cmd
}

func newImportCmd(g *globals) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge an export file into the store",
		Long: `Merge an export document into the local store by id, then copy the
result to the configured remote backend, if any. The local backend
configuration is kept.

With --replace the local projects, sections, images and videos are
cleared first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			ds, err := content.ParseDataset(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			c, closeFn, err := g.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if replace {
				n, err := c.ClearContent(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("Cleared %d local records", n)))
			}
			res, err := c.Import(cmd.Context(), ds)
			if res.Imported > 0 {
				fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Imported %d records from %s", res.Imported, args[0])))
			}
			if res.Migration != nil {
				printReport(out, *res.Migration)
			}
			if err != nil && res.Imported > 0 && !errors.Is(err, content.ErrStorageUnavailable) {
				fmt.Fprintln(out, warnStyle.Render("The local import stands; the remote copy failed: "+err.Error()))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear local content before importing")
	return cmd
}

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Copy the local store into the configured backend",
		Long: `Copy every local record into the configured remote backend. Records the
backend already holds are overwritten by id; running it twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := g.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := c.Migrate(cmd.Context())
			if errors.Is(err, content.ErrRemoteNotConfigured) {
				return fmt.Errorf("%w (set one up in the admin panel)", err)
			}
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}
}
