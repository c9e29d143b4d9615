package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"familia/internal/config"
	"familia/internal/repository"
	"familia/internal/service"
)

func newReconcileCmd(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair memberships recorded on only one side",
		Long: `Run one reconcile pass. Roster entries and user back-references are
made to agree, back-references to deleted families are removed and current
families the user no longer belongs to are cleared. Prints the repair counts
as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			reconciler := service.NewReconciler(db,
				repository.NewUserRepository(db),
				repository.NewFamilyRepository(db),
				repository.NewConsistencyRepository(db))

			report, err := reconciler.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
