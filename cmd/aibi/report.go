package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IlliaSobcko/AIBI-Project/db/models"
	"github.com/IlliaSobcko/AIBI-Project/internal/clifmt"
	"github.com/IlliaSobcko/AIBI-Project/reports"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the analytics summary and recent cycle history",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			sum, err := svc.Reports.Scan()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reports.FormatSummary(sum))

			if svc.DB == nil {
				return nil
			}

			var runs []models.CycleRun
			if err := svc.DB.Order("started_at DESC").Limit(10).Find(&runs).Error; err != nil {
				return fmt.Errorf("load cycle history: %w", err)
			}

			rows := make([]clifmt.NameDetailRow, 0, len(runs))
			for _, r := range runs {
				detail := fmt.Sprintf("trigger=%s processed=%d auto_sent=%d drafted=%d skipped=%d",
					r.Trigger, r.Processed, r.AutoSent, r.Drafted, r.Skipped)
				if r.Error != "" {
					detail += " error=" + r.Error
				}
				rows = append(rows, clifmt.NameDetailRow{
					Name:   r.StartedAt.Format("2006-01-02 15:04"),
					Detail: detail,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout())
			clifmt.PrintNameDetailTable(cmd.OutOrStdout(), clifmt.NameDetailTableOptions{
				Title:        "Recent cycles",
				Rows:         rows,
				EmptyText:    "No cycles recorded yet.",
				NameHeader:   "STARTED",
				DetailHeader: "RESULT",
			})
			return nil
		},
	}
}
