package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rpattn/creditdq/internal/config"
	"github.com/rpattn/creditdq/internal/db"
	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/export"
	"github.com/rpattn/creditdq/internal/ingestion"
	"github.com/rpattn/creditdq/internal/repository"
	"github.com/rpattn/creditdq/internal/validation"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run every data quality check and write the issue ledger and scorecard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("source", config.SourceDir, "Source kind (dir, postgres, sqlite)")
	flags.String("input", "data", "Data directory or SQLite database file")
	flags.String("schema", "public", "Postgres schema holding the source tables")
	flags.String("output", "reports", "Directory for report artifacts")
	flags.StringSlice("format", []string{"csv", "md"}, "Report formats (csv, md, xlsx, parquet, json)")
	flags.String("min-severity", "Info", "Lowest severity written to the ledger (Info, Warning, Critical)")
	flags.Int("top", 10, "Number of status mismatches listed in the findings report")
	flags.String("as-of", "", "Evaluation date YYYY-MM-DD (default today UTC)")
	flags.Bool("store", false, "Persist the run to Postgres")
	return cmd
}

func runValidate(ctx context.Context, out io.Writer, cfg config.Config, logger *logrus.Logger) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	formats, err := cfg.Formats()
	if err != nil {
		return err
	}

	var conn *db.Connection
	connect := func() (*db.Connection, error) {
		if conn != nil {
			return conn, nil
		}
		c, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		conn = c
		return conn, nil
	}
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	var src ingestion.TableSource
	switch cfg.Source.Kind {
	case config.SourceDir:
		src = ingestion.NewDirectorySource(cfg.Source.Path)
	case config.SourceSQLite:
		sqlite, err := repository.OpenSQLiteSource(cfg.Source.Path)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		src = sqlite
	case config.SourcePostgres:
		c, err := connect()
		if err != nil {
			return err
		}
		src = repository.NewPostgresSource(c.Pool).WithSchema(cfg.Source.Schema)
	default:
		return fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}

	dataset, err := ingestion.NewLoader(logger).Load(ctx, src)
	if err != nil {
		return fmt.Errorf("load %s source: %w", cfg.Source.Kind, err)
	}

	run, err := validation.NewEngine(opts, logger).Run(ctx, dataset)
	if err != nil {
		return err
	}

	artifacts, err := export.NewWriter(cfg.Report.OutputDir, formats, export.WithLogger(logger)).WriteAll(ctx, run)
	if err != nil {
		return err
	}

	if cfg.Store.Enabled {
		c, err := connect()
		if err != nil {
			return err
		}
		if err := repository.NewRunRepository(c).Save(ctx, run); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"component": "repository", "run_id": run.ID}).Info("run stored")
	}

	return printRun(out, run, artifacts)
}

func printRun(out io.Writer, run domain.Run, artifacts []export.Artifact) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %s as of %s: %d issues, %d in ledger (>= %s)\n\n",
		run.ID, run.AsOf.Format("2006-01-02"), run.Issues.Len(), run.Ledger.Len(), run.Ledger.MinSeverity())
	fmt.Fprintln(tw, "ENTITY\tTOTAL\tCLEAN\tISSUES\tSCORE")
	for _, row := range run.Scorecard {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\n", row.Label, row.TotalRecords, row.CleanRecords, row.IssueCount, row.QualityScore)
	}
	if len(artifacts) > 0 {
		fmt.Fprintln(tw)
		for _, a := range artifacts {
			fmt.Fprintf(tw, "%s\t%s\t%d bytes\n", a.Format, a.Path, a.Bytes)
		}
	}
	return tw.Flush()
}
