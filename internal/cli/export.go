package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/itop-report/internal/events"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		start, end, output string
		upload             bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the report of a period as a PDF document",
		Example: `  reportctl export
  reportctl export --start 2024-04-01 --end 2024-07-01 --output q2.pdf --archive`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			if upload && rt.archive == nil {
				return errors.New("archive requested but disabled: set ARCHIVE_ENABLED=true and ARCHIVE_BUCKET")
			}
			period, err := rt.reports.Period(start, end)
			if err != nil {
				return err
			}
			report, err := rt.reports.Build(ctx, period, events.ActorCLI)
			if err != nil {
				return err
			}
			doc, err := rt.documents.Export(ctx, report, events.ActorCLI)
			if err != nil {
				return err
			}

			target := output
			if target == "" {
				target = doc.Name
			}
			if err := os.WriteFile(target, doc.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d bytes) for %s\n", target, len(doc.Content), period.Label())
			for _, name := range report.FailedSections() {
				fmt.Fprintf(a.stderr, "warning: section %s unavailable\n", name)
			}

			if upload {
				key, err := rt.archive.Store(ctx, period, report.ID, doc.Content)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "archived as %s\n", key)
			}
			return nil
		},
	}
	addPeriodFlags(cmd, &start, &end)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: REPORT_DOCUMENT_NAME)")
	cmd.Flags().BoolVar(&upload, "archive", false, "also upload the document to the configured S3 bucket")
	return cmd
}
