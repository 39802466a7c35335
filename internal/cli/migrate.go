package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the iTop mirror tables in the configured Postgres database",
		Long: `Create the subset of the iTop schema read by the report.

Statements are idempotent: existing tables and data are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "mirror schema is up to date")
			return nil
		},
	}
}
