package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"walletsync/internal/action"
	"walletsync/internal/cli"
	"walletsync/internal/core"
	"walletsync/internal/screen"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "List and manage transactions",
	}
	cmd.AddCommand(txListCmd(), txAddCmd(), txEditCmd(), txDeleteCmd())
	return cmd
}

func txListCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a month's transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parsePeriod(month)
			if err != nil {
				return err
			}
			userID, err := app.UserID()
			if err != nil {
				return err
			}
			s := screen.NewTransactions(userID, app.Gateway, app.Bus, p, app.Logger)
			if err := s.Refresh(cmd.Context(), false); err != nil {
				return err
			}
			v := s.View()

			fmt.Println(cli.TitleStyle.Render("Transactions " + p.String()))
			if len(v.Items) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions this month."))
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("Date"), cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Account"), cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Amount"), cli.HeaderStyle.Render("Note"))
			for _, it := range v.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					it.Date, it.ID, it.AccountName, it.CategoryName,
					cli.FormatFlow(it.Amount, it.IsIncome), it.Note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current)")
	return cmd
}

func bindTxFlags(cmd *cobra.Command, in *action.TransactionInput) {
	cmd.Flags().StringVar(&in.AccountID, "account", "", "account id")
	cmd.Flags().StringVar(&in.CategoryID, "category", "", "category id")
	cmd.Flags().StringVar(&in.Amount, "amount", "", "positive amount, e.g. 12.50")
	cmd.Flags().BoolVar(&in.IsIncome, "income", false, "record as income")
	cmd.Flags().StringVar(&in.Date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.Note, "note", "", "free text note")
}

func txAddCmd() *cobra.Command {
	var in action.TransactionInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Date == "" {
				in.Date = time.Now().Format(time.DateOnly)
			}
			fields, err := in.Fields()
			if err != nil {
				return err
			}
			tx, err := app.TransactionForm(app.Publisher()).Submit(cmd.Context(), "", fields)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Recorded transaction " + tx.ID))
			return nil
		},
	}
	bindTxFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// terminalPresenter renders coordinator modals as terminal lines.
type terminalPresenter struct {
	out io.Writer
}

func (p terminalPresenter) OpenActionMenu(core.Transaction) {}
func (p terminalPresenter) CloseActionMenu()                {}

func (p terminalPresenter) ShowDeleteConfirm(tx core.Transaction) {
	fmt.Fprintf(p.out, "Delete %s %s on %s?\n", tx.ID, formatTx(tx), tx.Date)
	if tx.Note != "" {
		fmt.Fprintln(p.out, cli.SubtleStyle.Render("  "+tx.Note))
	}
}

func (p terminalPresenter) ShowSuccess(msg string) {
	fmt.Fprintln(p.out, cli.SuccessStyle.Render(msg))
}

func (p terminalPresenter) ShowError(msg string) {
	fmt.Fprintln(p.out, cli.ErrorStyle.Render(msg))
}

func formatTx(tx core.Transaction) string {
	return cli.FormatFlow(tx.Amount, tx.IsIncome)
}

type navigatorFunc func(core.Transaction)

func (f navigatorFunc) NavigateToEdit(tx core.Transaction) { f(tx) }

func txEditCmd() *cobra.Command {
	var in action.TransactionInput
	cmd := &cobra.Command{
		Use:   "edit TRANSACTION_ID",
		Short: "Change a transaction; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tx, err := app.Gateway.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}

			var snapshot core.Transaction
			coord := action.NewCoordinator(app.Gateway, app.Publisher(), terminalPresenter{out: os.Stdout},
				navigatorFunc(func(t core.Transaction) { snapshot = t }), app.Logger)
			if err := coord.Open(tx); err != nil {
				return err
			}
			if err := coord.RequestEdit(); err != nil {
				return err
			}

			merged := mergeInput(snapshot, in, cmd.Flags().Changed)
			fields, err := merged.Fields()
			if err != nil {
				return err
			}
			saved, err := app.TransactionForm(app.Publisher()).Submit(ctx, snapshot.ID, fields)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Updated transaction " + saved.ID))
			return nil
		},
	}
	bindTxFlags(cmd, &in)
	return cmd
}

// mergeInput starts from the stored transaction and overrides the flags the
// user set.
func mergeInput(tx core.Transaction, in action.TransactionInput, changed func(string) bool) action.TransactionInput {
	out := action.TransactionInput{
		AccountID:  tx.AccountID,
		CategoryID: tx.CategoryID,
		Amount:     tx.Amount.String(),
		IsIncome:   tx.IsIncome,
		Date:       tx.Date.String(),
		Note:       tx.Note,
	}
	if changed("account") {
		out.AccountID = in.AccountID
	}
	if changed("category") {
		out.CategoryID = in.CategoryID
	}
	if changed("amount") {
		out.Amount = in.Amount
	}
	if changed("income") {
		out.IsIncome = in.IsIncome
	}
	if changed("date") {
		out.Date = in.Date
	}
	if changed("note") {
		out.Note = in.Note
	}
	return out
}

func txDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete TRANSACTION_ID",
		Short: "Delete a transaction after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tx, err := app.Gateway.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}
			coord := action.NewCoordinator(app.Gateway, app.Publisher(), terminalPresenter{out: os.Stdout}, nil, app.Logger)
			if err := coord.Open(tx); err != nil {
				return err
			}
			if err := coord.RequestDelete(); err != nil {
				return err
			}
			if !yes && !confirm(os.Stdin, os.Stdout) {
				return coord.Cancel()
			}
			if err := coord.ConfirmDelete(ctx); err != nil {
				return err
			}
			return coord.DismissSuccess()
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Type 'y' to confirm: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
