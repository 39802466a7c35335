package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/events"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		start, end string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print ticket counts and resolution rates of a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			period, err := rt.reports.Period(start, end)
			if err != nil {
				return err
			}
			report, err := rt.reports.Build(ctx, period, events.ActorCLI)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeSummary(a.stdout, report)
			return nil
		},
	}
	addPeriodFlags(cmd, &start, &end)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print every rollup as JSON")
	return cmd
}

func writeSummary(w io.Writer, report *domain.Report) {
	fmt.Fprintf(w, "Period: %s\n", report.Period.Label())
	fmt.Fprintf(w, "Tickets: %d\n", report.Summary.Total)
	for _, s := range []struct {
		label   string
		section domain.Section[domain.StatusBreakdown]
	}{
		{"Service requests", report.Requests},
		{"Incidents", report.Incidents},
		{"Changes", report.Changes},
	} {
		if !s.section.Available() {
			fmt.Fprintf(w, "%s: unavailable\n", s.label)
			continue
		}
		b := s.section.Data
		fmt.Fprintf(w, "%s: %d total, %d resolved (%s), %d closed, %d unresolved (%s)\n",
			s.label, b.Total, b.Resolved, b.ResolvedRate(), b.Closed, b.Unresolved, b.UnresolvedRate())
	}
	for _, k := range []struct {
		label   string
		section domain.Section[domain.KPITable]
	}{
		{"Infra KPI_total", report.InfraKPI},
		{"App KPI_total", report.AppKPI},
	} {
		if !k.section.Available() {
			fmt.Fprintf(w, "%s: unavailable\n", k.label)
			continue
		}
		total := domain.NotAvailable
		if rows := k.section.Data.Rows; len(rows) > 0 {
			total = rows[len(rows)-1].KPITotal().String()
		}
		fmt.Fprintf(w, "%s: %s\n", k.label, total)
	}
	if failed := report.FailedSections(); len(failed) > 0 {
		fmt.Fprintf(w, "Unavailable sections: %s\n", strings.Join(failed, ", "))
	}
}
