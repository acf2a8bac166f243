package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/storage/export"
)

func (cli *commandLine) exportCmd() *cobra.Command {
	var year, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graded results of an academic year to a parquet file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year = core.CleanString(year); year == "" {
				_ = cmd.Usage()
				return errHelp
			}
			if output == "" {
				output = "results-" + year + ".parquet"
			}
			n, err := cli.exportResults(cmd.Context(), year, output)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "%d results exported to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&year, "academic-year", "", "academic year to export, e.g. 2025-2026")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, defaults to results-YEAR.parquet")
	return cmd
}

// exportResults writes one row per result of every enrollment of the academic year.
func (cli *commandLine) exportResults(ctx context.Context, year, path string) (int, error) {
	enrollments, err := cli.schoolRepo.QueryEnrollments(ctx, &school.QueryFilter{AcademicYear: year}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying enrollments")
	}

	records := make([]export.ResultRecord, 0)
	for _, enr := range enrollments {
		blt, err := cli.reportSvc.Bulletin(ctx, enr.ID)
		if err != nil {
			return 0, errors.Wrapf(err, "building bulletin of enrollment %d", enr.ID)
		}
		records = append(records, export.FromBulletin(blt)...)
	}
	if err = export.WriteResultsFile(path, records); err != nil {
		return 0, errors.Wrap(err, "writing results")
	}
	return len(records), nil
}
