package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	"walletsync/internal/screen"
)

func exportCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Append a month's summary and expense breakdown to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := parsePeriod(month)
			if err != nil {
				return err
			}
			userID, err := app.UserID()
			if err != nil {
				return err
			}
			exp, err := app.Exporter(ctx)
			if err != nil {
				return err
			}
			s := screen.NewAnalysis(userID, app.Gateway, app.Bus, p, app.Logger)
			if err := s.Refresh(ctx, true); err != nil {
				return err
			}
			v := s.View()
			ref, err := exp.ExportMonth(ctx, v.Summary, v.Breakdown)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Exported %s to %s", p, ref)))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	return cmd
}
