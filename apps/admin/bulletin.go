package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/trezcool/ecole/core/report"
)

// passing average, out of 20
const passMark = 10

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

func (cli *commandLine) bulletinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulletin ENROLLMENT_ID",
		Short: "Print the bulletin of an enrollment.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid enrollment ID %q", args[0])
			}
			blt, err := cli.reportSvc.Bulletin(cmd.Context(), id)
			if err != nil {
				return err
			}
			return cli.printBulletin(blt)
		},
	}
}

func fmtAverage(avg float64) string {
	s := strconv.FormatFloat(avg, 'f', 2, 64)
	if avg >= passMark {
		return passColor.Sprint(s)
	}
	return failColor.Sprint(s)
}

func (cli *commandLine) printBulletin(blt report.Bulletin) error {
	_, _ = fmt.Fprintf(cli.out, "%s (%s) - %s - %s\n", blt.StudentName, blt.Matricule, blt.ClassName, blt.AcademicYear)

	table := tablewriter.NewWriter(cli.out)
	table.Header([]string{"Semester", "Subject", "Coef.", "Score", "Weighted"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, lines := range [][]report.Line{blt.Semester1, blt.Semester2} {
		for _, l := range lines {
			data = append(data, []string{
				strconv.Itoa(l.Semester),
				l.SubjectName,
				strconv.Itoa(l.Coefficient),
				strconv.FormatFloat(l.Score, 'f', 2, 64),
				strconv.FormatFloat(l.WeightedScore, 'f', 2, 64),
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	card := blt.Card
	_, _ = fmt.Fprintf(cli.out, "Semester 1 average: %s\n", fmtAverage(card.Semester1.Average))
	_, _ = fmt.Fprintf(cli.out, "Semester 2 average: %s\n", fmtAverage(card.Semester2.Average))
	_, _ = fmt.Fprintf(cli.out, "Final average: %s\n", fmtAverage(card.FinalAverage))
	return nil
}
