package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walletsync/internal/cli"
	"walletsync/internal/core"
)

func categoriesCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := app.Gateway.ListCategories(cmd.Context(), core.CategoryType(typ))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"), cli.HeaderStyle.Render("Name"), cli.HeaderStyle.Render("Type"))
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "income or expense (default both)")
	return cmd
}
