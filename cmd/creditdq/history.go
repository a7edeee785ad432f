package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rpattn/creditdq/internal/db"
	"github.com/rpattn/creditdq/internal/repository"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List validation runs stored in Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			conn, err := db.NewConnection(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer conn.Close()

			runs, err := repository.NewRunRepository(conn).List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tAS OF\tISSUES\tLEDGER\tTHRESHOLD")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.AsOf.Format("2006-01-02"),
					r.IssueCount, r.LedgerCount, r.MinSeverity)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}
